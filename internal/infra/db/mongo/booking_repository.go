package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainbooking "skirent/internal/domain/booking"
)

type BookingRepository struct {
	col *mongo.Collection
}

func NewBookingRepository(db *mongo.Database) *BookingRepository {
	col := db.Collection("bookings")
	_, _ = col.Indexes().CreateOne(context.Background(), mongo.IndexModel{Keys: bson.D{{Key: "gateway_intent_id", Value: 1}}})
	_, _ = col.Indexes().CreateOne(context.Background(), mongo.IndexModel{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "cart", Value: 1}}})
	_, _ = col.Indexes().CreateOne(context.Background(), mongo.IndexModel{Keys: bson.D{{Key: "status", Value: 1}, {Key: "updated_at", Value: 1}}})
	return &BookingRepository{col: col}
}

func (r *BookingRepository) ByID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	return r.findOne(ctx, bson.M{"_id": string(id)})
}

func (r *BookingRepository) ByGatewayIntentID(ctx context.Context, intentID string) (*domainbooking.Booking, error) {
	if intentID == "" {
		return nil, domainbooking.ErrBookingNotFound
	}
	return r.findOne(ctx, bson.M{"gateway_intent_id": intentID})
}

func (r *BookingRepository) ActiveCartByUser(ctx context.Context, userID string) (*domainbooking.Booking, error) {
	filter := bson.M{
		"user_id": userID,
		"cart":    true,
		"status":  bson.M{"$ne": string(domainbooking.StatusCancelled)},
	}
	return r.findOne(ctx, filter)
}

func (r *BookingRepository) ListByUser(ctx context.Context, userID string) ([]*domainbooking.Booking, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	return r.find(ctx, bson.M{"user_id": userID}, opts)
}

func (r *BookingRepository) ListInPaymentBefore(ctx context.Context, cutoff time.Time) ([]*domainbooking.Booking, error) {
	filter := bson.M{
		"status":     string(domainbooking.StatusInPayment),
		"updated_at": bson.M{"$lt": cutoff.UnixMilli()},
	}
	opts := options.Find().SetSort(bson.D{{Key: "updated_at", Value: 1}})
	return r.find(ctx, filter, opts)
}

func (r *BookingRepository) Save(ctx context.Context, b *domainbooking.Booking) error {
	doc := newBookingDocument(b)
	filter := bson.M{"_id": doc.ID, "version": b.Version}
	doc.Version = b.Version + 1
	opts := options.Update().SetUpsert(true)
	res, err := r.col.UpdateOne(ctx, filter, bson.M{"$set": doc}, opts)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domainbooking.ErrConcurrentUpdate
		}
		return err
	}
	if res.MatchedCount == 0 && res.UpsertedCount == 0 {
		return domainbooking.ErrConcurrentUpdate
	}
	b.Version = doc.Version
	return nil
}

func (r *BookingRepository) findOne(ctx context.Context, filter bson.M) (*domainbooking.Booking, error) {
	var doc bookingDocument
	if err := r.col.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainbooking.ErrBookingNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *BookingRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*domainbooking.Booking, error) {
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := make([]*domainbooking.Booking, 0)
	for cur.Next(ctx) {
		var doc bookingDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.toAggregate())
	}
	return out, cur.Err()
}

type bookingDocument struct {
	ID               string        `bson:"_id"`
	UserID           string        `bson:"user_id"`
	Cart             bool          `bson:"cart"`
	Status           string        `bson:"status"`
	PriceTotal       moneyDocument `bson:"price_total"`
	GatewaySessionID string        `bson:"gateway_session_id"`
	GatewayIntentID  string        `bson:"gateway_intent_id"`
	Reference        string        `bson:"reference"`
	CreatedAt        int64         `bson:"created_at"`
	UpdatedAt        int64         `bson:"updated_at"`
	Version          int64         `bson:"version"`
}

func newBookingDocument(b *domainbooking.Booking) bookingDocument {
	return bookingDocument{
		ID:               string(b.ID),
		UserID:           b.UserID,
		Cart:             b.Cart,
		Status:           string(b.Status),
		PriceTotal:       newMoneyDocument(b.PriceTotal),
		GatewaySessionID: b.GatewaySessionID,
		GatewayIntentID:  b.GatewayIntentID,
		Reference:        b.Reference,
		CreatedAt:        b.CreatedAt.UnixMilli(),
		UpdatedAt:        b.UpdatedAt.UnixMilli(),
		Version:          b.Version,
	}
}

func (d bookingDocument) toAggregate() *domainbooking.Booking {
	return &domainbooking.Booking{
		ID:               domainbooking.BookingID(d.ID),
		UserID:           d.UserID,
		Cart:             d.Cart,
		Status:           domainbooking.Status(d.Status),
		PriceTotal:       d.PriceTotal.toMoney(),
		GatewaySessionID: d.GatewaySessionID,
		GatewayIntentID:  d.GatewayIntentID,
		Reference:        d.Reference,
		CreatedAt:        timestampToTime(d.CreatedAt),
		UpdatedAt:        timestampToTime(d.UpdatedAt),
		Version:          d.Version,
	}
}
