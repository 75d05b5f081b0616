package services

import (
	"context"
	"fmt"
	"log"

	"github.com/cryptomart/storefront/internal/models"
	"github.com/shopspring/decimal"
)

// SeedProducts populates the catalog with the starter inventory on first
// boot. Skipped once any active product exists.
func SeedProducts(ctx context.Context, catalog *CatalogService) error {
	existing, err := catalog.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("failed to check existing products: %w", err)
	}
	if len(existing) > 0 {
		return nil
	}

	samples := []models.NewProduct{
		{
			Name:        "Crypto Pioneer Cap",
			Description: "Premium quality baseball cap with embroidered crypto logo",
			CryptoPrice: decimal.RequireFromString("0.025"),
			FiatPrice:   decimal.RequireFromString("89.99"),
			Category:    "headwear",
			ImageURL:    "https://images.unsplash.com/photo-1588850561407-ed78c282e89b?w=600&h=600",
			Stock:       50,
		},
		{
			Name:        "Golden Chain Necklace",
			Description: "18k gold-plated chain with crypto pendant",
			CryptoPrice: decimal.RequireFromString("0.15"),
			FiatPrice:   decimal.RequireFromString("539.99"),
			Category:    "jewelry",
			ImageURL:    "https://images.unsplash.com/photo-1599643478518-a784e5dc4c8f?w=600&h=600",
			Stock:       25,
		},
		{
			Name:        "Web3 Developer Hoodie",
			Description: "Comfortable cotton hoodie with blockchain graphics",
			CryptoPrice: decimal.RequireFromString("0.08"),
			FiatPrice:   decimal.RequireFromString("287.99"),
			Category:    "apparel",
			ImageURL:    "https://images.unsplash.com/photo-1556821840-3a63f95609a7?w=600&h=600",
			Stock:       75,
		},
		{
			Name:        "NFT Artist Tee",
			Description: "Limited edition t-shirt featuring digital art",
			CryptoPrice: decimal.RequireFromString("0.045"),
			FiatPrice:   decimal.RequireFromString("161.99"),
			Category:    "apparel",
			ImageURL:    "https://images.unsplash.com/photo-1521572163474-6864f9cf17ab?w=600&h=600",
			Stock:       100,
		},
		{
			Name:        "Hardware Wallet Case",
			Description: "Protective leather case for crypto hardware wallets",
			CryptoPrice: decimal.RequireFromString("0.035"),
			FiatPrice:   decimal.RequireFromString("125.99"),
			Category:    "accessories",
			ImageURL:    "https://images.unsplash.com/photo-1553062407-98eeb64c6a62?w=600&h=600",
			Stock:       40,
		},
		{
			Name:        "Crypto Sticker Pack",
			Description: "Set of 20 premium crypto-themed stickers",
			CryptoPrice: decimal.RequireFromString("0.012"),
			FiatPrice:   decimal.RequireFromString("43.20"),
			Category:    "accessories",
			ImageURL:    "https://images.unsplash.com/photo-1578662996442-48f60103fc96?w=600&h=600",
			Stock:       200,
		},
		{
			Name:        "Crypto Tracker Watch",
			Description: "Smartwatch with built-in crypto price tracker",
			CryptoPrice: decimal.RequireFromString("0.42"),
			FiatPrice:   decimal.RequireFromString("1511.99"),
			Category:    "accessories",
			ImageURL:    "https://images.unsplash.com/photo-1523275335684-37898b6baf30?w=600&h=600",
			Stock:       15,
		},
		{
			Name:        "Digital Nomad Backpack",
			Description: "Anti-theft backpack designed for crypto travelers",
			CryptoPrice: decimal.RequireFromString("0.18"),
			FiatPrice:   decimal.RequireFromString("647.99"),
			Category:    "accessories",
			ImageURL:    "https://images.unsplash.com/photo-1553062407-98eeb64c6a62?w=600&h=600",
			Stock:       30,
		},
	}

	for _, p := range samples {
		if _, err := catalog.Create(ctx, p); err != nil {
			return fmt.Errorf("failed to seed product %q: %w", p.Name, err)
		}
	}

	log.Printf("[CATALOG] Seeded %d sample products", len(samples))
	return nil
}
