package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainbooking "skirent/internal/domain/booking"
	domainrefund "skirent/internal/domain/refund"
)

type RefundRepository struct {
	col *mongo.Collection
}

func NewRefundRepository(db *mongo.Database) *RefundRepository {
	col := db.Collection("refunds")
	_, _ = col.Indexes().CreateOne(context.Background(), mongo.IndexModel{Keys: bson.D{{Key: "gateway_refund_id", Value: 1}}})
	_, _ = col.Indexes().CreateOne(context.Background(), mongo.IndexModel{Keys: bson.D{{Key: "booking_id", Value: 1}, {Key: "status", Value: 1}}})
	return &RefundRepository{col: col}
}

func (r *RefundRepository) ByID(ctx context.Context, id domainrefund.RefundID) (*domainrefund.Refund, error) {
	return r.findOne(ctx, bson.M{"_id": string(id)})
}

func (r *RefundRepository) ByGatewayRefundID(ctx context.Context, gatewayRefundID string) (*domainrefund.Refund, error) {
	// Refunds parked before the gateway assigned an id have the field
	// empty; an empty lookup must not match them.
	if gatewayRefundID == "" {
		return nil, domainrefund.ErrRefundNotFound
	}
	return r.findOne(ctx, bson.M{"gateway_refund_id": gatewayRefundID})
}

func (r *RefundRepository) ByBooking(ctx context.Context, bookingID domainbooking.BookingID) ([]*domainrefund.Refund, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := r.col.Find(ctx, bson.M{"booking_id": string(bookingID)}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := make([]*domainrefund.Refund, 0)
	for cur.Next(ctx) {
		var doc refundDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.toAggregate())
	}
	return out, cur.Err()
}

func (r *RefundRepository) HasPending(ctx context.Context, bookingID domainbooking.BookingID) (bool, error) {
	filter := bson.M{"booking_id": string(bookingID), "status": string(domainrefund.StatusPending)}
	n, err := r.col.CountDocuments(ctx, filter)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *RefundRepository) Save(ctx context.Context, ref *domainrefund.Refund) error {
	doc := newRefundDocument(ref)
	filter := bson.M{"_id": doc.ID, "version": ref.Version}
	doc.Version = ref.Version + 1
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
	ref.Version = doc.Version
	return nil
}

func (r *RefundRepository) findOne(ctx context.Context, filter bson.M) (*domainrefund.Refund, error) {
	var doc refundDocument
	if err := r.col.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainrefund.ErrRefundNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

type refundDocument struct {
	ID              string        `bson:"_id"`
	BookingID       string        `bson:"booking_id"`
	GatewayIntentID string        `bson:"gateway_intent_id"`
	GatewayRefundID string        `bson:"gateway_refund_id"`
	Amount          moneyDocument `bson:"amount"`
	Percentage      int           `bson:"percentage"`
	Status          string        `bson:"status"`
	RequestedBy     string        `bson:"requested_by"`
	CreatedAt       int64         `bson:"created_at"`
	UpdatedAt       int64         `bson:"updated_at"`
	Version         int64         `bson:"version"`
}

func newRefundDocument(ref *domainrefund.Refund) refundDocument {
	return refundDocument{
		ID:              string(ref.ID),
		BookingID:       string(ref.BookingID),
		GatewayIntentID: ref.GatewayIntentID,
		GatewayRefundID: ref.GatewayRefundID,
		Amount:          newMoneyDocument(ref.Amount),
		Percentage:      ref.Percentage,
		Status:          string(ref.Status),
		RequestedBy:     string(ref.RequestedBy),
		CreatedAt:       ref.CreatedAt.UnixMilli(),
		UpdatedAt:       ref.UpdatedAt.UnixMilli(),
		Version:         ref.Version,
	}
}

func (d refundDocument) toAggregate() *domainrefund.Refund {
	return &domainrefund.Refund{
		ID:              domainrefund.RefundID(d.ID),
		BookingID:       domainbooking.BookingID(d.BookingID),
		GatewayIntentID: d.GatewayIntentID,
		GatewayRefundID: d.GatewayRefundID,
		Amount:          d.Amount.toMoney(),
		Percentage:      d.Percentage,
		Status:          domainrefund.Status(d.Status),
		RequestedBy:     domainrefund.RequestedBy(d.RequestedBy),
		CreatedAt:       timestampToTime(d.CreatedAt),
		UpdatedAt:       timestampToTime(d.UpdatedAt),
		Version:         d.Version,
	}
}
