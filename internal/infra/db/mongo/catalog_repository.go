package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"skirent/internal/domain/catalog"
)

type ProductRepository struct {
	col *mongo.Collection
}

func NewProductRepository(db *mongo.Database) *ProductRepository {
	return &ProductRepository{col: db.Collection("catalog_products")}
}

func (r *ProductRepository) ByID(ctx context.Context, id catalog.ProductID) (*catalog.Product, error) {
	var doc productDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, catalog.ErrProductNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *ProductRepository) List(ctx context.Context, activeOnly bool) ([]*catalog.Product, error) {
	filter := bson.M{}
	if activeOnly {
		filter["active"] = true
	}
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := make([]*catalog.Product, 0)
	for cur.Next(ctx) {
		var doc productDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.toAggregate())
	}
	return out, cur.Err()
}

func (r *ProductRepository) Save(ctx context.Context, p *catalog.Product) error {
	doc := newProductDocument(p)
	_, err := r.col.UpdateByID(ctx, doc.ID, bson.M{"$set": doc}, options.Update().SetUpsert(true))
	return err
}

type productDocument struct {
	ID             string `bson:"_id"`
	Name           string `bson:"name"`
	Description    string `bson:"description"`
	HasVariants    bool   `bson:"has_variants"`
	CanBeDelivered bool   `bson:"can_be_delivered"`
	CanBePickedUp  bool   `bson:"can_be_picked_up"`
	Active         bool   `bson:"active"`
	ImageURL       string `bson:"image_url"`
	CreatedAt      int64  `bson:"created_at"`
	UpdatedAt      int64  `bson:"updated_at"`
}

func newProductDocument(p *catalog.Product) productDocument {
	return productDocument{
		ID:             string(p.ID),
		Name:           p.Name,
		Description:    p.Description,
		HasVariants:    p.HasVariants,
		CanBeDelivered: p.CanBeDelivered,
		CanBePickedUp:  p.CanBePickedUp,
		Active:         p.Active,
		ImageURL:       p.ImageURL,
		CreatedAt:      p.CreatedAt.UnixMilli(),
		UpdatedAt:      p.UpdatedAt.UnixMilli(),
	}
}

func (d productDocument) toAggregate() *catalog.Product {
	return &catalog.Product{
		ID:             catalog.ProductID(d.ID),
		Name:           d.Name,
		Description:    d.Description,
		HasVariants:    d.HasVariants,
		CanBeDelivered: d.CanBeDelivered,
		CanBePickedUp:  d.CanBePickedUp,
		Active:         d.Active,
		ImageURL:       d.ImageURL,
		CreatedAt:      timestampToTime(d.CreatedAt),
		UpdatedAt:      timestampToTime(d.UpdatedAt),
	}
}

type VariantRepository struct {
	col *mongo.Collection
}

func NewVariantRepository(db *mongo.Database) *VariantRepository {
	col := db.Collection("catalog_variants")
	_, _ = col.Indexes().CreateOne(context.Background(), mongo.IndexModel{Keys: bson.D{{Key: "product_id", Value: 1}}})
	return &VariantRepository{col: col}
}

func (r *VariantRepository) ByID(ctx context.Context, id catalog.VariantID) (*catalog.Variant, error) {
	var doc variantDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, catalog.ErrVariantNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *VariantRepository) ByProduct(ctx context.Context, productID catalog.ProductID) ([]*catalog.Variant, error) {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	cur, err := r.col.Find(ctx, bson.M{"product_id": string(productID)}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := make([]*catalog.Variant, 0)
	for cur.Next(ctx) {
		var doc variantDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.toAggregate())
	}
	return out, cur.Err()
}

func (r *VariantRepository) Save(ctx context.Context, v *catalog.Variant) error {
	doc := newVariantDocument(v)
	_, err := r.col.UpdateByID(ctx, doc.ID, bson.M{"$set": doc}, options.Update().SetUpsert(true))
	return err
}

type variantDocument struct {
	ID         string              `bson:"_id"`
	ProductID  string              `bson:"product_id"`
	Attributes []attributeDocument `bson:"attributes"`
	Deposit    moneyDocument       `bson:"deposit"`
	Active     bool                `bson:"active"`
	CreatedAt  int64               `bson:"created_at"`
	UpdatedAt  int64               `bson:"updated_at"`
}

type attributeDocument struct {
	Attribute string `bson:"attribute"`
	Value     string `bson:"value"`
}

func newVariantDocument(v *catalog.Variant) variantDocument {
	attrs := make([]attributeDocument, 0, len(v.Attributes))
	for _, av := range v.Attributes {
		attrs = append(attrs, attributeDocument{Attribute: av.Attribute, Value: av.Value})
	}
	return variantDocument{
		ID:         string(v.ID),
		ProductID:  string(v.ProductID),
		Attributes: attrs,
		Deposit:    newMoneyDocument(v.Deposit),
		Active:     v.Active,
		CreatedAt:  v.CreatedAt.UnixMilli(),
		UpdatedAt:  v.UpdatedAt.UnixMilli(),
	}
}

func (d variantDocument) toAggregate() *catalog.Variant {
	attrs := make([]catalog.AttributeValue, 0, len(d.Attributes))
	for _, av := range d.Attributes {
		attrs = append(attrs, catalog.AttributeValue{Attribute: av.Attribute, Value: av.Value})
	}
	return &catalog.Variant{
		ID:         catalog.VariantID(d.ID),
		ProductID:  catalog.ProductID(d.ProductID),
		Attributes: attrs,
		Deposit:    d.Deposit.toMoney(),
		Active:     d.Active,
		CreatedAt:  timestampToTime(d.CreatedAt),
		UpdatedAt:  timestampToTime(d.UpdatedAt),
	}
}

type UnitRepository struct {
	col *mongo.Collection
}

func NewUnitRepository(db *mongo.Database) *UnitRepository {
	col := db.Collection("catalog_units")
	_, _ = col.Indexes().CreateOne(context.Background(), mongo.IndexModel{Keys: bson.D{{Key: "variant_id", Value: 1}, {Key: "status", Value: 1}}})
	return &UnitRepository{col: col}
}

func (r *UnitRepository) ByID(ctx context.Context, id catalog.UnitID) (*catalog.Unit, error) {
	var doc unitDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, catalog.ErrUnitNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *UnitRepository) ByVariant(ctx context.Context, variantID catalog.VariantID) ([]*catalog.Unit, error) {
	return r.find(ctx, bson.M{"variant_id": string(variantID)})
}

func (r *UnitRepository) RentableByVariant(ctx context.Context, variantID catalog.VariantID) ([]*catalog.Unit, error) {
	return r.find(ctx, bson.M{"variant_id": string(variantID), "status": string(catalog.UnitRentable)})
}

func (r *UnitRepository) Save(ctx context.Context, u *catalog.Unit) error {
	doc := newUnitDocument(u)
	_, err := r.col.UpdateByID(ctx, doc.ID, bson.M{"$set": doc}, options.Update().SetUpsert(true))
	return err
}

func (r *UnitRepository) find(ctx context.Context, filter bson.M) ([]*catalog.Unit, error) {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := make([]*catalog.Unit, 0)
	for cur.Next(ctx) {
		var doc unitDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		out = append(out, doc.toAggregate())
	}
	return out, cur.Err()
}

type unitDocument struct {
	ID        string `bson:"_id"`
	VariantID string `bson:"variant_id"`
	Serial    string `bson:"serial"`
	Status    string `bson:"status"`
	Condition string `bson:"condition"`
	CreatedAt int64  `bson:"created_at"`
	UpdatedAt int64  `bson:"updated_at"`
}

func newUnitDocument(u *catalog.Unit) unitDocument {
	return unitDocument{
		ID:        string(u.ID),
		VariantID: string(u.VariantID),
		Serial:    u.Serial,
		Status:    string(u.Status),
		Condition: string(u.Condition),
		CreatedAt: u.CreatedAt.UnixMilli(),
		UpdatedAt: u.UpdatedAt.UnixMilli(),
	}
}

func (d unitDocument) toAggregate() *catalog.Unit {
	return &catalog.Unit{
		ID:        catalog.UnitID(d.ID),
		VariantID: catalog.VariantID(d.VariantID),
		Serial:    d.Serial,
		Status:    catalog.UnitStatus(d.Status),
		Condition: catalog.ConditionGrade(d.Condition),
		CreatedAt: timestampToTime(d.CreatedAt),
		UpdatedAt: timestampToTime(d.UpdatedAt),
	}
}
