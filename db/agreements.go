package db

// agreements.go deals with e-signature agreement database calls. The
// signing flow is public: an unguessable token, not an authenticated
// session, identifies the agreement being signed.

import "context"

// Agreement statuses.
const (
	AgreementPending = "pending"
	AgreementSigned  = "signed"
)

// Agreement is a rental agreement awaiting or carrying a customer
// signature. SignToken is the server-generated random token embedded
// in the public signing link.
type Agreement struct {
	ID            int64   `db:"id" json:"id"`
	OrderID       int64   `db:"order_id" json:"orderId"`
	CustomerID    int64   `db:"customer_id" json:"customerId"`
	SignToken     string  `db:"sign_token" json:"signToken"`
	SignaturePath string  `db:"signature_path" json:"signaturePath"`
	PdfPath       string  `db:"pdf_path" json:"pdfPath"`
	Status        string  `db:"status" json:"status"`
	SignedAt      *string `db:"signed_at" json:"signedAt"`
	CreatedAt     string  `db:"created_at" json:"createdAt"`
	CustomerName  string  `db:"customer_name" json:"customerName"`
	EventDate     string  `db:"event_date" json:"eventDate"`
	RowCount      int     `db:"row_count" json:"-"`
}

// AgreementsGet returns a page of agreements, newest first, optionally
// narrowed by status.
func (db *DB) AgreementsGet(ctx context.Context, status string, limit, offset int) ([]Agreement, error) {
	agreements := []Agreement{}
	err := db.selectStmt(ctx, &agreements, qAgreements, map[string]any{
		"Status":     status,
		"HereLimit":  limit,
		"HereOffset": offset,
	})
	return agreements, err
}

// AgreementGet fetches a single agreement by id, returning
// sql.ErrNoRows if none exists.
func (db *DB) AgreementGet(ctx context.Context, agreementID int64) (Agreement, error) {
	var agreement Agreement
	err := db.getStmt(ctx, &agreement, qAgreement, map[string]any{
		"AgreementID": agreementID,
	})
	return agreement, err
}

// AgreementByToken fetches an agreement by its signing token, with
// the customer and order fields needed to prefill the public signing
// page. Returns sql.ErrNoRows for an unknown token.
func (db *DB) AgreementByToken(ctx context.Context, signToken string) (Agreement, error) {
	var agreement Agreement
	err := db.getStmt(ctx, &agreement, qAgreementByToken, map[string]any{
		"SignToken": signToken,
	})
	return agreement, err
}

// AgreementCreate inserts a pending agreement and returns the new id.
func (db *DB) AgreementCreate(ctx context.Context, orderID, customerID int64, signToken, pdfPath string) (int64, error) {
	res, err := db.execStmt(ctx, qAgreementInsert, map[string]any{
		"OrderID":    orderID,
		"CustomerID": customerID,
		"SignToken":  signToken,
		"PdfPath":    pdfPath,
	})
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// AgreementSign records a captured signature against a pending
// agreement, moving it to signed. Returns ErrAlreadySigned when the
// agreement is not pending (or does not exist).
func (db *DB) AgreementSign(ctx context.Context, agreementID int64, signaturePath, signedAt string) error {
	res, err := db.execStmt(ctx, qAgreementSign, map[string]any{
		"AgreementID":   agreementID,
		"SignaturePath": signaturePath,
		"SignedAt":      signedAt,
	})
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrAlreadySigned
	}
	return nil
}
