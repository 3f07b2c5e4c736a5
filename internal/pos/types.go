package pos

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// JSONNumber renders d as a bare JSON number. The POS and the mini-app both
// exchange money as numbers, while decimal.Decimal marshals to a string.
func JSONNumber(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}

func nullNumber(d decimal.NullDecimal) *json.Number {
	if !d.Valid {
		return nil
	}
	n := JSONNumber(d.Decimal)
	return &n
}

// Order type tags accepted by /order/save.
const (
	OrderTypeToGo     = "TOGO"
	OrderTypeDineIn   = "IN"
	OrderTypeDelivery = "DELIVERY"
	OrderTypePreOrder = "PRE_ORDER"
)

// Order statuses reported by the POS on save and through the status webhook.
const (
	StatusCreated   = "CREATED"
	StatusAccepted  = "ACCEPTED"
	StatusCancelled = "CANCELLED"
)

// Shop is a storefront of the POS account.
type Shop struct {
	GUID     string `json:"guid" yaml:"guid"`
	Name     string `json:"name" yaml:"name"`
	Type     string `json:"type" yaml:"type"`
	CityName string `json:"cityName,omitempty" yaml:"city_name,omitempty"`
}

// Group is an entry of the v2 menu group tree.
type Group struct {
	GUID       string `json:"guid" yaml:"guid"`
	Name       string `json:"name" yaml:"name"`
	ParentGUID string `json:"parentGuid,omitempty" yaml:"parent_guid,omitempty"`
}

// MenuGroup is a top-level catalog group with its items.
type MenuGroup struct {
	GUID     string     `json:"guid" yaml:"guid"`
	Name     string     `json:"name" yaml:"name"`
	ItemList []MenuItem `json:"itemList,omitempty" yaml:"items,omitempty"`
}

// MenuItem is a sellable position. Sized items carry their prices in
// TypeList (or RecipeTypeList for recipe-based items).
type MenuItem struct {
	GUID                          string              `json:"guid" yaml:"guid"`
	Name                          string              `json:"name" yaml:"name"`
	Price                         decimal.NullDecimal `json:"price" yaml:"-"`
	TypeList                      []MenuType          `json:"typeList,omitempty" yaml:"types,omitempty"`
	RecipeTypeList                []MenuType          `json:"recipeTypeList,omitempty" yaml:"recipe_types,omitempty"`
	SupplementCategoryToFreeCount map[string]int      `json:"supplementCategoryToFreeCount,omitempty" yaml:"free_supplements,omitempty"`
}

// MenuType is a size or variant of a menu item.
type MenuType struct {
	GUID  string          `json:"guid" yaml:"guid"`
	Name  string          `json:"name" yaml:"name"`
	Price decimal.Decimal `json:"price" yaml:"-"`
}

// SupplementCategory groups modifiers (syrups, milk, extra shots).
type SupplementCategory struct {
	GUID     string       `json:"guid" yaml:"guid"`
	Name     string       `json:"name" yaml:"name"`
	ItemList []Supplement `json:"itemList,omitempty" yaml:"items,omitempty"`
}

// Supplement is a single modifier.
type Supplement struct {
	GUID         string              `json:"guid" yaml:"guid"`
	Name         string              `json:"name" yaml:"name"`
	DefaultPrice decimal.NullDecimal `json:"defaultPrice" yaml:"-"`
}

// OrderItem is a line of /order/save.
type OrderItem struct {
	MenuItemGUID      string          `json:"menuItemGuid"`
	MenuTypeGUID      string          `json:"menuTypeGuid,omitempty"`
	SupplementList    map[string]int  `json:"supplementList"`
	PriceWithDiscount decimal.Decimal `json:"priceWithDiscount"`
	Quantity          int             `json:"quantity"`
}

// Customer is the client block of /order/save.
type Customer struct {
	Name       string  `json:"name"`
	CardNumber *string `json:"cardNumber"`
	PhoneCode  string  `json:"phoneCode"`
	Phone      string  `json:"phone"`
	Email      string  `json:"email"`
}

// OrderRequest is the body of /order/save. GUID doubles as the idempotency
// key of the submission. A nil PaidValue means payment on pickup.
type OrderRequest struct {
	GUID                  string           `json:"guid"`
	ShopGUID              string           `json:"shopGuid"`
	Type                  string           `json:"type"`
	ItemList              []OrderItem      `json:"itemList"`
	Client                *Customer        `json:"client,omitempty"`
	Comment               string           `json:"comment"`
	PaidValue             *decimal.Decimal `json:"paidValue"`
	PrintFiscalCheck      bool             `json:"printFiscalCheck"`
	PrintFiscalCheckEmail *string          `json:"printFiscalCheckEmail"`
}

// SavedOrder is the first row returned by /order/save.
type SavedOrder struct {
	GUID   string `json:"guid"`
	Status string `json:"status"`
}

func (it MenuItem) MarshalJSON() ([]byte, error) {
	type plain MenuItem
	return json.Marshal(struct {
		plain
		Price *json.Number `json:"price"`
	}{plain(it), nullNumber(it.Price)})
}

func (t MenuType) MarshalJSON() ([]byte, error) {
	type plain MenuType
	return json.Marshal(struct {
		plain
		Price json.Number `json:"price"`
	}{plain(t), JSONNumber(t.Price)})
}

func (s Supplement) MarshalJSON() ([]byte, error) {
	type plain Supplement
	return json.Marshal(struct {
		plain
		DefaultPrice *json.Number `json:"defaultPrice"`
	}{plain(s), nullNumber(s.DefaultPrice)})
}

func (it OrderItem) MarshalJSON() ([]byte, error) {
	type plain OrderItem
	return json.Marshal(struct {
		plain
		PriceWithDiscount json.Number `json:"priceWithDiscount"`
	}{plain(it), JSONNumber(it.PriceWithDiscount)})
}

func (r OrderRequest) MarshalJSON() ([]byte, error) {
	type plain OrderRequest
	var paid *json.Number
	if r.PaidValue != nil {
		n := JSONNumber(*r.PaidValue)
		paid = &n
	}
	return json.Marshal(struct {
		plain
		PaidValue *json.Number `json:"paidValue"`
	}{plain(r), paid})
}
