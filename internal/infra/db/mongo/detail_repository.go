package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainbooking "skirent/internal/domain/booking"
	"skirent/internal/domain/catalog"
	"skirent/internal/domain/shared/daterange"
)

type DetailRepository struct {
	col      *mongo.Collection
	guards   *mongo.Collection
	bookings *BookingRepository
}

func NewDetailRepository(db *mongo.Database, bookings *BookingRepository) *DetailRepository {
	col := db.Collection("booking_details")
	_, _ = col.Indexes().CreateOne(context.Background(), mongo.IndexModel{Keys: bson.D{{Key: "booking_id", Value: 1}}})
	_, _ = col.Indexes().CreateOne(context.Background(), mongo.IndexModel{Keys: bson.D{{Key: "unit_id", Value: 1}, {Key: "range.start", Value: 1}}})
	return &DetailRepository{col: col, guards: db.Collection("unit_claims"), bookings: bookings}
}

func (r *DetailRepository) ByID(ctx context.Context, id domainbooking.DetailID) (*domainbooking.Detail, error) {
	var doc detailDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainbooking.ErrDetailNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *DetailRepository) ByBooking(ctx context.Context, bookingID domainbooking.BookingID) ([]*domainbooking.Detail, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cur, err := r.col.Find(ctx, bson.M{"booking_id": string(bookingID)}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := make([]*domainbooking.Detail, 0)
	for cur.Next(ctx) {
		var doc detailDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.toAggregate())
	}
	return out, cur.Err()
}

func (r *DetailRepository) ActiveOverlapping(ctx context.Context, unitIDs []catalog.UnitID, rng daterange.RentalRange, requestingUserID string) ([]catalog.UnitID, error) {
	if len(unitIDs) == 0 {
		return nil, nil
	}
	ids := make([]string, 0, len(unitIDs))
	for _, id := range unitIDs {
		ids = append(ids, string(id))
	}
	filter := bson.M{
		"unit_id":     bson.M{"$in": ids},
		"range.start": bson.M{"$lte": rng.End.UnixMilli()},
		"range.end":   bson.M{"$gte": rng.Start.UnixMilli()},
	}
	cur, err := r.col.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	// The booking status lives on the parent aggregate, so candidates are
	// filtered in a second pass instead of a lookup pipeline.
	byBooking := make(map[string][]catalog.UnitID)
	for cur.Next(ctx) {
		var doc detailDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		byBooking[doc.BookingID] = append(byBooking[doc.BookingID], catalog.UnitID(doc.UnitID))
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}

	seen := make(map[catalog.UnitID]struct{})
	taken := make([]catalog.UnitID, 0)
	for bookingID, units := range byBooking {
		parent, err := r.bookings.ByID(ctx, domainbooking.BookingID(bookingID))
		if err != nil {
			if errors.Is(err, domainbooking.ErrBookingNotFound) {
				continue
			}
			return nil, err
		}
		if !parent.Active(requestingUserID) {
			continue
		}
		for _, unit := range units {
			if _, ok := seen[unit]; ok {
				continue
			}
			seen[unit] = struct{}{}
			taken = append(taken, unit)
		}
	}
	return taken, nil
}

func (r *DetailRepository) Claim(ctx context.Context, d *domainbooking.Detail, requestingUserID string) error {
	// The guard upsert takes a write lock on the unit for the rest of the
	// surrounding transaction. Two racing claims for the same unit
	// serialize here, and the loser re-reads the winner's line item in the
	// overlap check below.
	guardUpdate := bson.M{"$inc": bson.M{"rev": 1}}
	if _, err := r.guards.UpdateByID(ctx, string(d.UnitID), guardUpdate, options.Update().SetUpsert(true)); err != nil {
		return err
	}
	taken, err := r.ActiveOverlapping(ctx, []catalog.UnitID{d.UnitID}, d.Range, requestingUserID)
	if err != nil {
		return err
	}
	if len(taken) > 0 {
		return domainbooking.ErrNoUnitsAvailable
	}
	_, err = r.col.InsertOne(ctx, newDetailDocument(d))
	return err
}

func (r *DetailRepository) Save(ctx context.Context, d *domainbooking.Detail) error {
	doc := newDetailDocument(d)
	_, err := r.col.UpdateByID(ctx, doc.ID, bson.M{"$set": doc}, options.Update().SetUpsert(true))
	return err
}

type detailDocument struct {
	ID           string        `bson:"_id"`
	BookingID    string        `bson:"booking_id"`
	UnitID       string        `bson:"unit_id"`
	VariantID    string        `bson:"variant_id"`
	Range        rangeDocument `bson:"range"`
	Delivery     string        `bson:"delivery"`
	PickupWindow string        `bson:"pickup_window"`
	ReturnWindow string        `bson:"return_window"`
	Price        moneyDocument `bson:"price"`
	Fulfillment  string        `bson:"fulfillment"`
	CreatedAt    int64         `bson:"created_at"`
	UpdatedAt    int64         `bson:"updated_at"`
}

func newDetailDocument(d *domainbooking.Detail) detailDocument {
	return detailDocument{
		ID:           string(d.ID),
		BookingID:    string(d.BookingID),
		UnitID:       string(d.UnitID),
		VariantID:    string(d.VariantID),
		Range:        newRangeDocument(d.Range),
		Delivery:     string(d.Delivery),
		PickupWindow: d.PickupWindow,
		ReturnWindow: d.ReturnWindow,
		Price:        newMoneyDocument(d.Price),
		Fulfillment:  string(d.Fulfillment),
		CreatedAt:    d.CreatedAt.UnixMilli(),
		UpdatedAt:    d.UpdatedAt.UnixMilli(),
	}
}

func (d detailDocument) toAggregate() *domainbooking.Detail {
	return &domainbooking.Detail{
		ID:           domainbooking.DetailID(d.ID),
		BookingID:    domainbooking.BookingID(d.BookingID),
		UnitID:       catalog.UnitID(d.UnitID),
		VariantID:    catalog.VariantID(d.VariantID),
		Range:        d.Range.toRange(),
		Delivery:     domainbooking.DeliveryMethod(d.Delivery),
		PickupWindow: d.PickupWindow,
		ReturnWindow: d.ReturnWindow,
		Price:        d.Price.toMoney(),
		Fulfillment:  domainbooking.Fulfillment(d.Fulfillment),
		CreatedAt:    timestampToTime(d.CreatedAt),
		UpdatedAt:    timestampToTime(d.UpdatedAt),
	}
}
