package catalog

import (
	"context"
	"errors"
	"time"
)

var (
	ErrUnitNotFound      = errors.New("catalog: unit not found")
	ErrUnknownUnitStatus = errors.New("catalog: unknown unit status")
)

type UnitID string

// UnitStatus is the sole authority for whether a unit may be offered for
// booking. Statuses are mutually exclusive.
type UnitStatus string

const (
	UnitRentable    UnitStatus = "rentable"
	UnitMaintenance UnitStatus = "maintenance"
	UnitRetired     UnitStatus = "retired"
)

func ParseUnitStatus(s string) (UnitStatus, error) {
	switch UnitStatus(s) {
	case UnitRentable, UnitMaintenance, UnitRetired:
		return UnitStatus(s), nil
	}
	return "", ErrUnknownUnitStatus
}

type ConditionGrade string

const (
	ConditionNew  ConditionGrade = "new"
	ConditionGood ConditionGrade = "good"
	ConditionWorn ConditionGrade = "worn"
)

// Unit is one physical, individually trackable item. It belongs to exactly
// one variant for its lifetime.
type Unit struct {
	ID        UnitID
	VariantID VariantID
	Serial    string
	Status    UnitStatus
	Condition ConditionGrade
	CreatedAt time.Time
	UpdatedAt time.Time
}

type UnitRepository interface {
	ByID(ctx context.Context, id UnitID) (*Unit, error)
	ByVariant(ctx context.Context, variantID VariantID) ([]*Unit, error)
	RentableByVariant(ctx context.Context, variantID VariantID) ([]*Unit, error)
	Save(ctx context.Context, u *Unit) error
}

func NewUnit(id UnitID, variantID VariantID, serial string, now time.Time) *Unit {
	t := now.UTC()
	return &Unit{
		ID:        id,
		VariantID: variantID,
		Serial:    serial,
		Status:    UnitRentable,
		Condition: ConditionNew,
		CreatedAt: t,
		UpdatedAt: t,
	}
}

func (u *Unit) SetStatus(status UnitStatus, now time.Time) error {
	if _, err := ParseUnitStatus(string(status)); err != nil {
		return err
	}
	u.Status = status
	u.UpdatedAt = now.UTC()
	return nil
}

func (u *Unit) Rentable() bool {
	return u.Status == UnitRentable
}
