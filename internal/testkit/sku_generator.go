package testkit

import (
	"fmt"
	"math/rand"

	"trolleymatch/domain/match"
)

// SKUGeneratorConfig configures the grocery product name generator
type SKUGeneratorConfig struct {
	Count int
	Seed  int64
}

// DefaultSKUConfig returns a small deterministic configuration
func DefaultSKUConfig() SKUGeneratorConfig {
	return SKUGeneratorConfig{Count: 20, Seed: 42}
}

var (
	skuBrands = []string{"Heineken", "Corona Extra", "Stella Artois", "Peroni Nastro Azzurro", "Coca Cola", "Walkers"}
	skuKinds  = []string{"Premium Lager", "Beer", "Lager", "Original", "Zero Sugar", "Crisps"}
	skuPacks  = []int{1, 4, 6, 10, 12, 15, 24}
	skuSizes  = []string{"330ml", "440ml", "500ml", "568ml", "1.5l", "25g"}
)

// GenerateSKUs returns product names in the shapes seen in supplier sheets,
// e.g. "Heineken Premium Lager 15x440ml". The same seed gives the same names.
func GenerateSKUs(config SKUGeneratorConfig) []string {
	rng := rand.New(rand.NewSource(config.Seed))
	names := make([]string, config.Count)
	for i := range names {
		brand := skuBrands[rng.Intn(len(skuBrands))]
		kind := skuKinds[rng.Intn(len(skuKinds))]
		pack := skuPacks[rng.Intn(len(skuPacks))]
		size := skuSizes[rng.Intn(len(skuSizes))]
		switch {
		case pack == 1:
			names[i] = fmt.Sprintf("%s %s %s", brand, kind, size)
		case i%2 == 0:
			names[i] = fmt.Sprintf("%s %s %dx%s", brand, kind, pack, size)
		default:
			names[i] = fmt.Sprintf("%s %s %d x %s", brand, kind, pack, size)
		}
	}
	return names
}

// CatalogFor builds a catalogue where every name has one perfectly matching product
func CatalogFor(names []string, parse func(string) match.SKU) map[string][]match.Product {
	catalog := make(map[string][]match.Product, len(names))
	for i, name := range names {
		sku := parse(name)
		qty := sku.QuantityString()
		if qty == "" {
			qty = "1"
		}
		catalog[name] = []match.Product{{
			Brand:       sku.Brand,
			Description: name,
			Size:        sku.Size,
			Quantity:    qty,
			Price:       fmt.Sprintf("£%d.%02d", 1+i%20, (i*7)%100),
			URL:         fmt.Sprintf("https://www.trolley.co.uk/product/item-%d", i),
		}}
	}
	return catalog
}
