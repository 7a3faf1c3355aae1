package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		log.Fatalf("Failed to open DB: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("Failed to ping DB: %v", err)
	}

	seedProposals(ctx, pool)
	seedAddons(ctx, pool)
	seedOffers(ctx, pool)
	seedUpsells(ctx, pool)

	log.Println("Seeding completed successfully!")
}

func seedProposals(ctx context.Context, pool *pgxpool.Pool) {
	// $10,000 proposal on a 1.42% payment factor plan.
	_, err := pool.Exec(ctx, `
		INSERT INTO proposals (id, customer_name, services, subtotal_cents, total_cents,
			monthly_payment_cents, discount_cents, payment_factor, financing_plan_name, custom_adders)
		VALUES
			('prop-1001', 'Dana Whitfield', ARRAY['roofing','gutters'], 1000000, 1000000, 14200, 0, 1.42,
			 'HomeSaver 1.42', '[{"description":"Permit fees","cost":25000}]'),
			('prop-1002', 'Luis Ortega', ARRAY['hvac'], 1200000, 1200000, 0, 0, NULL,
			 'ZeroRate 60', '[]')
		ON CONFLICT (id) DO NOTHING`)
	if err != nil {
		log.Fatalf("Failed to seed proposals: %v", err)
	}
	_, err = pool.Exec(ctx, `
		UPDATE proposals SET financing_term = 60, interest_rate = 0 WHERE id = 'prop-1002'`)
	if err != nil {
		log.Fatalf("Failed to set financing terms: %v", err)
	}
	log.Println("Seeded proposals")
}

func seedAddons(ctx context.Context, pool *pgxpool.Pool) {
	_, err := pool.Exec(ctx, `
		INSERT INTO proposal_addons (id, service_key, name, price_cents)
		VALUES
			('addon-gutter-guards', 'gutters', 'Gutter guards', 150000),
			('addon-ridge-vent', 'roofing', 'Ridge vent upgrade', 85000),
			('addon-smart-thermostat', 'hvac', 'Smart thermostat', 45000)
		ON CONFLICT (id) DO NOTHING`)
	if err != nil {
		log.Fatalf("Failed to seed addons: %v", err)
	}
	log.Println("Seeded addons")
}

func seedOffers(ctx context.Context, pool *pgxpool.Pool) {
	deadline := time.Now().Add(72 * time.Hour).UTC().Format(time.RFC3339)
	_, err := pool.Exec(ctx, `
		INSERT INTO proposal_offers (offer_id, proposal_id, offer_type, name, description, category,
			discount_amount, discount_percentage, free_item, expiration_date, bonus_message, active)
		VALUES
			('offer-500-off', 'prop-1001', 'special_offer', '$500 Off This Week', 'Sign before the deadline.',
			 'seasonal', 500, NULL, '', $1, '', true),
			('offer-10-pct', 'prop-1001', 'special_offer', '10% Spring Discount', '',
			 'seasonal', NULL, '10', '', $1, '', true),
			('bundle-roof-gutters', 'prop-1001', 'bundle_rule', 'Roof + Gutter Bundle', '',
			 'bundle', 750, NULL, '', '', '', true)
		ON CONFLICT (offer_id) DO NOTHING`, deadline)
	if err != nil {
		log.Fatalf("Failed to seed offers: %v", err)
	}
	log.Println("Seeded offers")
}

func seedUpsells(ctx context.Context, pool *pgxpool.Pool) {
	_, err := pool.Exec(ctx, `
		INSERT INTO lifestyle_upsells (id, product_suggestion, category, base_price, monthly_impact, description, is_active)
		VALUES
			('upsell-generator', 'Whole-home generator', 'comfort', 7500, 95, 'Backup power for outages', true),
			('upsell-ev-charger', 'EV charger rough-in', 'energy', 1800, 24, '', true),
			('upsell-retired', 'Legacy skylight', 'comfort', 2400, 30, '', false)
		ON CONFLICT (id) DO NOTHING`)
	if err != nil {
		log.Fatalf("Failed to seed upsells: %v", err)
	}
	log.Println("Seeded upsells")
}
