/**
 * @description
 * This file provides the PostgreSQL implementation of the `Repository` interface.
 * It contains all the necessary SQL queries to interact with the database tables
 * for products, KYC records, and payment methods.
 *
 * State-machine transitions are expressed as conditional UPDATEs (status CAS in the
 * WHERE clause) so that a transition commits only if the row is still in the expected
 * state. The returned rows-affected count tells the service layer whether the
 * precondition held.
 *
 * @dependencies
 * - context, errors, time: Standard Go libraries.
 * - github.com/jackc/pgx/v5: The PostgreSQL driver for database operations.
 * - internal/domain: Contains the domain models used for data transfer.
 */

package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ChoudharyNavit22/degicredit-backend/internal/domain"
)

var (
	ErrProductNotFound       = errors.New("product not found")
	ErrKYCRecordNotFound     = errors.New("kyc record not found")
	ErrKYCRecordImmutable    = errors.New("kyc record is complete and immutable")
	ErrPaymentMethodNotFound = errors.New("payment method not found")
	ErrPaymentMethodExists   = errors.New("payment method already registered")
)

// PostgresRepository is a concrete implementation of the Repository interface for PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new instance of PostgresRepository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const productColumns = `id, owner_id, buyer_id, name, description, type, sell_value, original_value, expiry_date, status, created_at, updated_at`

func scanProduct(row pgx.Row) (*domain.Product, error) {
	var p domain.Product
	err := row.Scan(
		&p.ID, &p.OwnerID, &p.BuyerID, &p.Name, &p.Description, &p.Type,
		&p.SellValue, &p.OriginalValue, &p.ExpiryDate, &p.Status, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// CreateProduct inserts a new product record in listed status.
func (r *PostgresRepository) CreateProduct(ctx context.Context, product *domain.Product) error {
	query := `
		INSERT INTO products (id, owner_id, name, description, type, sell_value, original_value, expiry_date, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now(), now())
		RETURNING created_at, updated_at
	`
	return r.db.QueryRow(ctx, query,
		product.ID, product.OwnerID, product.Name, product.Description, product.Type,
		product.SellValue, product.OriginalValue, product.ExpiryDate, product.Status,
	).Scan(&product.CreatedAt, &product.UpdatedAt)
}

// FindProductByID retrieves a product from the database by its ID.
func (r *PostgresRepository) FindProductByID(ctx context.Context, productID uuid.UUID) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`
	product, err := scanProduct(r.db.QueryRow(ctx, query, productID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return product, nil
}

// ListProductsByOwner returns a page of the owner's products, newest first.
func (r *PostgresRepository) ListProductsByOwner(ctx context.Context, ownerID uuid.UUID, skip, limit int) ([]domain.Product, error) {
	query := `
		SELECT ` + productColumns + `
		FROM products
		WHERE owner_id = $1
		ORDER BY created_at DESC
		OFFSET $2 LIMIT $3
	`
	rows, err := r.db.Query(ctx, query, ownerID, skip, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectProducts(rows)
}

// ListMarketProducts returns a page of listed products not owned by the requesting
// party, newest first.
func (r *PostgresRepository) ListMarketProducts(ctx context.Context, excludeOwnerID uuid.UUID, skip, limit int) ([]domain.Product, error) {
	query := `
		SELECT ` + productColumns + `
		FROM products
		WHERE status = $1 AND owner_id <> $2
		ORDER BY created_at DESC
		OFFSET $3 LIMIT $4
	`
	rows, err := r.db.Query(ctx, query, domain.ProductListed, excludeOwnerID, skip, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectProducts(rows)
}

func collectProducts(rows pgx.Rows) ([]domain.Product, error) {
	products := []domain.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}

// UpdateProductStatus performs a compare-and-swap on the product status.
func (r *PostgresRepository) UpdateProductStatus(ctx context.Context, productID uuid.UUID, from, to domain.ProductStatus) (bool, error) {
	query := `
		UPDATE products
		SET status = $1, updated_at = now()
		WHERE id = $2 AND status = $3
	`
	tag, err := r.db.Exec(ctx, query, to, productID, from)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// AssignBuyer attaches a buyer to a seller-verified product with no buyer assigned.
// The buyer_id IS NULL predicate is the first-writer-wins contention point: of two
// concurrent assignment attempts, exactly one updates the row.
func (r *PostgresRepository) AssignBuyer(ctx context.Context, productID, buyerID uuid.UUID) (bool, error) {
	query := `
		UPDATE products
		SET buyer_id = $1, status = $2, updated_at = now()
		WHERE id = $3 AND status = $4 AND buyer_id IS NULL
	`
	tag, err := r.db.Exec(ctx, query, buyerID, domain.ProductMatched, productID, domain.ProductSellerVerified)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// MarkProductExpired moves a non-terminal product to expired.
func (r *PostgresRepository) MarkProductExpired(ctx context.Context, productID uuid.UUID) (bool, error) {
	query := `
		UPDATE products
		SET status = $1, updated_at = now()
		WHERE id = $2 AND status NOT IN ($3, $4, $5)
	`
	tag, err := r.db.Exec(ctx, query, domain.ProductExpired, productID,
		domain.ProductSettled, domain.ProductExpired, domain.ProductCancelled)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// ListExpiredCandidates returns non-terminal products whose expiry date has passed.
func (r *PostgresRepository) ListExpiredCandidates(ctx context.Context, now time.Time) ([]domain.Product, error) {
	query := `
		SELECT ` + productColumns + `
		FROM products
		WHERE expiry_date <= $1 AND status NOT IN ($2, $3, $4)
		ORDER BY expiry_date ASC
	`
	rows, err := r.db.Query(ctx, query, now,
		domain.ProductSettled, domain.ProductExpired, domain.ProductCancelled)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectProducts(rows)
}

// UpsertKYCRecord inserts the KYC record for (product, role) or overwrites a pending
// one. The WHERE clause on the conflict branch keeps completed records immutable.
func (r *PostgresRepository) UpsertKYCRecord(ctx context.Context, record *domain.KYCRecord) error {
	query := `
		INSERT INTO kyc_records (product_id, role, a1, a2, a3, a4, a5, a6, a7, kyc_document, kyc_signature, iban_number, cassette_number, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, now(), now())
		ON CONFLICT (product_id, role) DO UPDATE
		SET a1 = EXCLUDED.a1, a2 = EXCLUDED.a2, a3 = EXCLUDED.a3, a4 = EXCLUDED.a4,
		    a5 = EXCLUDED.a5, a6 = EXCLUDED.a6, a7 = EXCLUDED.a7,
		    kyc_document = EXCLUDED.kyc_document, kyc_signature = EXCLUDED.kyc_signature,
		    iban_number = EXCLUDED.iban_number, cassette_number = EXCLUDED.cassette_number,
		    status = EXCLUDED.status, updated_at = now()
		WHERE kyc_records.status <> $15
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		record.ProductID, record.Role,
		record.SectionA.A1, record.SectionA.A2, record.SectionA.A3, record.SectionA.A4,
		record.SectionA.A5, record.SectionA.A6, record.SectionA.A7,
		record.Document, record.Signature, record.IBANNumber, record.CassetteNumber,
		record.Status, domain.KYCComplete,
	).Scan(&record.CreatedAt, &record.UpdatedAt)
	if err == pgx.ErrNoRows {
		// Conflict branch skipped because the existing record is complete.
		return ErrKYCRecordImmutable
	}
	return err
}

// FindKYCRecord retrieves the KYC record for a (product, role) pair.
func (r *PostgresRepository) FindKYCRecord(ctx context.Context, productID uuid.UUID, role domain.KYCRole) (*domain.KYCRecord, error) {
	query := `
		SELECT product_id, role, a1, a2, a3, a4, a5, a6, a7, kyc_document, kyc_signature, iban_number, cassette_number, status, created_at, updated_at
		FROM kyc_records
		WHERE product_id = $1 AND role = $2
	`
	var rec domain.KYCRecord
	err := r.db.QueryRow(ctx, query, productID, role).Scan(
		&rec.ProductID, &rec.Role,
		&rec.SectionA.A1, &rec.SectionA.A2, &rec.SectionA.A3, &rec.SectionA.A4,
		&rec.SectionA.A5, &rec.SectionA.A6, &rec.SectionA.A7,
		&rec.Document, &rec.Signature, &rec.IBANNumber, &rec.CassetteNumber,
		&rec.Status, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrKYCRecordNotFound
		}
		return nil, err
	}
	return &rec, nil
}

// CompleteKYCPayment marks the KYC record complete, stores the payment method,
// and advances the product status in one transaction. If the record is missing,
// already complete, a payment method already exists, or the product is no longer
// in the expected `from` status, the transaction rolls back and false is
// returned. Nothing below half-commits: a verified transaction either has the
// complete record, the payment row and the advanced status, or none of them.
func (r *PostgresRepository) CompleteKYCPayment(ctx context.Context, productID uuid.UUID, role domain.KYCRole, payment *domain.PaymentMethod, from, to domain.ProductStatus) (bool, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	completeQuery := `
		UPDATE kyc_records
		SET status = $1, updated_at = now()
		WHERE product_id = $2 AND role = $3 AND status IN ($4, $5)
	`
	tag, err := tx.Exec(ctx, completeQuery, domain.KYCComplete, productID, role,
		domain.KYCSubmitted, domain.KYCPaymentPending)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() != 1 {
		return false, nil
	}

	insertQuery := `
		INSERT INTO payment_methods (product_id, role, card_source, created_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (product_id, role) DO NOTHING
		RETURNING created_at
	`
	err = tx.QueryRow(ctx, insertQuery, payment.ProductID, payment.Role, payment.CardSource).Scan(&payment.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return false, ErrPaymentMethodExists
		}
		return false, err
	}

	advanceQuery := `
		UPDATE products
		SET status = $1, updated_at = now()
		WHERE id = $2 AND status = $3
	`
	tag, err = tx.Exec(ctx, advanceQuery, to, productID, from)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() != 1 {
		return false, nil
	}

	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// FindPaymentMethod retrieves the payment method for a (product, role) pair.
func (r *PostgresRepository) FindPaymentMethod(ctx context.Context, productID uuid.UUID, role domain.KYCRole) (*domain.PaymentMethod, error) {
	query := `SELECT product_id, role, card_source, created_at FROM payment_methods WHERE product_id = $1 AND role = $2`
	var pm domain.PaymentMethod
	err := r.db.QueryRow(ctx, query, productID, role).Scan(&pm.ProductID, &pm.Role, &pm.CardSource, &pm.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrPaymentMethodNotFound
		}
		return nil, err
	}
	return &pm, nil
}
