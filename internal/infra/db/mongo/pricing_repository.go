package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"skirent/internal/domain/catalog"
)

type PeriodRepository struct {
	col *mongo.Collection
}

func NewPeriodRepository(db *mongo.Database) *PeriodRepository {
	return &PeriodRepository{col: db.Collection("price_periods")}
}

func (r *PeriodRepository) ByID(ctx context.Context, id catalog.PeriodID) (*catalog.PricePeriod, error) {
	var doc periodDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, catalog.ErrPeriodNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *PeriodRepository) ListActive(ctx context.Context) ([]*catalog.PricePeriod, error) {
	opts := options.Find().SetSort(bson.D{{Key: "position", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := r.col.Find(ctx, bson.M{"active": true}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := make([]*catalog.PricePeriod, 0)
	for cur.Next(ctx) {
		var doc periodDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.toAggregate())
	}
	return out, cur.Err()
}

func (r *PeriodRepository) Save(ctx context.Context, p *catalog.PricePeriod) error {
	doc := newPeriodDocument(p)
	_, err := r.col.UpdateByID(ctx, doc.ID, bson.M{"$set": doc}, options.Update().SetUpsert(true))
	return err
}

type periodDocument struct {
	ID        string `bson:"_id"`
	Code      string `bson:"code"`
	Name      string `bson:"name"`
	Position  int    `bson:"position"`
	Active    bool   `bson:"active"`
	MinDays   int    `bson:"min_days"`
	MaxDays   *int   `bson:"max_days,omitempty"`
	Days      int    `bson:"days"`
	CreatedAt int64  `bson:"created_at"`
	UpdatedAt int64  `bson:"updated_at"`
}

func newPeriodDocument(p *catalog.PricePeriod) periodDocument {
	return periodDocument{
		ID:        string(p.ID),
		Code:      p.Code,
		Name:      p.Name,
		Position:  p.Position,
		Active:    p.Active,
		MinDays:   p.MinDays,
		MaxDays:   p.MaxDays,
		Days:      p.Days,
		CreatedAt: p.CreatedAt.UnixMilli(),
		UpdatedAt: p.UpdatedAt.UnixMilli(),
	}
}

func (d periodDocument) toAggregate() *catalog.PricePeriod {
	return &catalog.PricePeriod{
		ID:        catalog.PeriodID(d.ID),
		Code:      d.Code,
		Name:      d.Name,
		Position:  d.Position,
		Active:    d.Active,
		MinDays:   d.MinDays,
		MaxDays:   d.MaxDays,
		Days:      d.Days,
		CreatedAt: timestampToTime(d.CreatedAt),
		UpdatedAt: timestampToTime(d.UpdatedAt),
	}
}

type PriceListRepository struct {
	col *mongo.Collection
}

func NewPriceListRepository(db *mongo.Database) *PriceListRepository {
	col := db.Collection("price_entries")
	_, _ = col.Indexes().CreateOne(context.Background(), mongo.IndexModel{Keys: bson.D{{Key: "variant_id", Value: 1}}})
	return &PriceListRepository{col: col}
}

func priceEntryID(variantID catalog.VariantID, periodID catalog.PeriodID) string {
	return string(variantID) + ":" + string(periodID)
}

func (r *PriceListRepository) ByVariantAndPeriod(ctx context.Context, variantID catalog.VariantID, periodID catalog.PeriodID) (*catalog.PriceEntry, error) {
	var doc priceEntryDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": priceEntryID(variantID, periodID)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, catalog.ErrPriceEntryNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *PriceListRepository) ByVariant(ctx context.Context, variantID catalog.VariantID) ([]*catalog.PriceEntry, error) {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	cur, err := r.col.Find(ctx, bson.M{"variant_id": string(variantID)}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := make([]*catalog.PriceEntry, 0)
	for cur.Next(ctx) {
		var doc priceEntryDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.toAggregate())
	}
	return out, cur.Err()
}

func (r *PriceListRepository) Save(ctx context.Context, e *catalog.PriceEntry) error {
	doc := newPriceEntryDocument(e)
	_, err := r.col.UpdateByID(ctx, doc.ID, bson.M{"$set": doc}, options.Update().SetUpsert(true))
	return err
}

func (r *PriceListRepository) Delete(ctx context.Context, variantID catalog.VariantID, periodID catalog.PeriodID) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": priceEntryID(variantID, periodID)})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return catalog.ErrPriceEntryNotFound
	}
	return nil
}

type priceEntryDocument struct {
	ID        string        `bson:"_id"`
	VariantID string        `bson:"variant_id"`
	PeriodID  string        `bson:"period_id"`
	Price     moneyDocument `bson:"price"`
	UpdatedAt int64         `bson:"updated_at"`
}

func newPriceEntryDocument(e *catalog.PriceEntry) priceEntryDocument {
	return priceEntryDocument{
		ID:        priceEntryID(e.VariantID, e.PeriodID),
		VariantID: string(e.VariantID),
		PeriodID:  string(e.PeriodID),
		Price:     newMoneyDocument(e.Price),
		UpdatedAt: e.UpdatedAt.UnixMilli(),
	}
}

func (d priceEntryDocument) toAggregate() *catalog.PriceEntry {
	return &catalog.PriceEntry{
		VariantID: catalog.VariantID(d.VariantID),
		PeriodID:  catalog.PeriodID(d.PeriodID),
		Price:     d.Price.toMoney(),
		UpdatedAt: timestampToTime(d.UpdatedAt),
	}
}

type SettingsRepository struct {
	col *mongo.Collection
}

func NewSettingsRepository(db *mongo.Database) *SettingsRepository {
	return &SettingsRepository{col: db.Collection("shop_settings")}
}

const settingsDocumentID = "settings"

func (r *SettingsRepository) Get(ctx context.Context) (catalog.ShopSettings, error) {
	var doc settingsDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": settingsDocumentID}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return catalog.ShopSettings{RefundHours: catalog.DefaultRefundHours}, nil
		}
		return catalog.ShopSettings{}, err
	}
	return catalog.ShopSettings{RefundHours: doc.RefundHours, UpdatedAt: timestampToTime(doc.UpdatedAt)}, nil
}

func (r *SettingsRepository) Save(ctx context.Context, s catalog.ShopSettings) error {
	updatedAt := s.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}
	doc := settingsDocument{ID: settingsDocumentID, RefundHours: s.RefundHours, UpdatedAt: updatedAt.UnixMilli()}
	_, err := r.col.UpdateByID(ctx, doc.ID, bson.M{"$set": doc}, options.Update().SetUpsert(true))
	return err
}

type settingsDocument struct {
	ID          string `bson:"_id"`
	RefundHours int    `bson:"refund_hours"`
	UpdatedAt   int64  `bson:"updated_at"`
}
