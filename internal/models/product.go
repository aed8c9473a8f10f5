package models

import (
	"encoding/json"
	"strings"
)

// ProductKind closed set of core products; ProductOther carries a free-text name
type ProductKind int

const (
	ProductOther ProductKind = iota
	ProductPluma
	ProductCaroco
	ProductFibrilha
	ProductBriquete
)

var coreNames = map[ProductKind]string{
	ProductPluma:    "Pluma",
	ProductCaroco:   "Caroço",
	ProductFibrilha: "Fibrilha",
	ProductBriquete: "Briquete",
}

// CoreProducts in dashboard order
var CoreProducts = []Product{
	{Kind: ProductPluma},
	{Kind: ProductCaroco},
	{Kind: ProductFibrilha},
	{Kind: ProductBriquete},
}

// QuantityUnit which quantity field is authoritative for a product
type QuantityUnit string

const (
	UnitBales    QuantityUnit = "bales"
	UnitWeightKg QuantityUnit = "weight_kg"
)

// Product tagged union: a core kind, or ProductOther with Name set (Reciclados, Cavaco, ...)
type Product struct {
	Kind ProductKind
	Name string
}

// OtherProduct builds a dynamically registered product
func OtherProduct(name string) Product {
	return Product{Kind: ProductOther, Name: strings.TrimSpace(name)}
}

var foldAccents = strings.NewReplacer(
	"ç", "c", "ã", "a", "á", "a", "â", "a", "à", "a",
	"é", "e", "ê", "e", "í", "i", "ó", "o", "ô", "o", "õ", "o", "ú", "u",
)

func foldKey(s string) string {
	return foldAccents.Replace(strings.ToLower(strings.TrimSpace(s)))
}

// ParseProduct maps a stored product name onto the union; unknown names become ProductOther
func ParseProduct(s string) Product {
	switch foldKey(s) {
	case "pluma":
		return Product{Kind: ProductPluma}
	case "caroco":
		return Product{Kind: ProductCaroco}
	case "fibrilha":
		return Product{Kind: ProductFibrilha}
	case "briquete":
		return Product{Kind: ProductBriquete}
	default:
		return OtherProduct(s)
	}
}

// String display name
func (p Product) String() string {
	if name, ok := coreNames[p.Kind]; ok {
		return name
	}
	return p.Name
}

// Key grouping key; two products with the same key belong to the same queue
func (p Product) Key() string {
	if p.Kind != ProductOther {
		return foldKey(coreNames[p.Kind])
	}
	return "other:" + foldKey(p.Name)
}

// Equal compares by Key
func (p Product) Equal(o Product) bool {
	return p.Key() == o.Key()
}

// IsCore reports whether p is one of the fixed products
func (p Product) IsCore() bool {
	return p.Kind != ProductOther
}

// IsZero reports an unset product
func (p Product) IsZero() bool {
	return p.Kind == ProductOther && p.Name == ""
}

// QuantityUnit bales for Pluma/Fibrilha, weight for Caroço/Briquete.
// Other products report weight; see LoadingJob.Quantity for the bales fallback.
func (p Product) QuantityUnit() QuantityUnit {
	switch p.Kind {
	case ProductPluma, ProductFibrilha:
		return UnitBales
	default:
		return UnitWeightKg
	}
}

func (p Product) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

func (p *Product) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*p = ParseProduct(s)
	return nil
}
