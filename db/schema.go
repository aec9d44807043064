package db

// schema.go names the external sql files prepared by the database
// layer. Each file lives in the sql directory and can be run directly
// on the sqlite3 command line; parameters are declared with the
// `/* @param */` marker described in parameterize.go.

// schemaSQL defines the application's database schema for SQLite. It
// is designed to be idempotent using `CREATE TABLE IF NOT EXISTS` and
// is executed raw, not prepared.
const schemaSQL = "schema.sql"

// Statement file names, grouped by entity.
const (
	qCustomers                 = "customers.sql"
	qCustomer                  = "customer.sql"
	qCustomerByPhone           = "customer_by_phone.sql"
	qCustomerInsert            = "customer_insert.sql"
	qCustomerUpdate            = "customer_update.sql"
	qCustomerDelete            = "customer_delete.sql"
	qCustomerMergeOrders       = "customer_merge_orders.sql"
	qCustomerMergeTransactions = "customer_merge_transactions.sql"
	qCustomerMergeHistory      = "customer_merge_history.sql"
	qCustomerMergeAgreements   = "customer_merge_agreements.sql"

	qDresses            = "dresses.sql"
	qDress              = "dress.sql"
	qDressInsert        = "dress_insert.sql"
	qDressUpdate        = "dress_update.sql"
	qDressPhotoUpdate   = "dress_photo_update.sql"
	qDressSaleCount     = "dress_sale_count.sql"
	qDressMarkSold      = "dress_mark_sold.sql"
	qDressRelease       = "dress_release.sql"
	qDressActivity      = "dress_activity_increment.sql"
	qDressHistory       = "dress_history.sql"
	qDressHistoryInsert = "dress_history_insert.sql"

	qOrders                 = "orders.sql"
	qOrder                  = "order.sql"
	qOrderRow               = "order_row.sql"
	qOrderItems             = "order_items.sql"
	qOrderInsert            = "order_insert.sql"
	qOrderUpdate            = "order_update.sql"
	qOrderCancel            = "order_cancel.sql"
	qOrderDelete            = "order_delete.sql"
	qOrderSummaryUpdate     = "order_summary_update.sql"
	qOrderItemsDelete       = "order_items_delete.sql"
	qOrderItemInsert        = "order_item_insert.sql"
	qOrderSaleDresses       = "order_sale_dresses.sql"
	qOrderMergeItems        = "order_merge_items.sql"
	qOrderMergeTransactions = "order_merge_transactions.sql"
	qOrderMergeAgreements   = "order_merge_agreements.sql"
	qOrderMergeHistory      = "order_merge_history.sql"
	qOrderTotals            = "order_totals.sql"
	qOrderMergeUpdate       = "order_merge_update.sql"

	qTransactions       = "transactions.sql"
	qTransaction        = "transaction.sql"
	qTransactionInsert  = "transaction_insert.sql"
	qTransactionUpdate  = "transaction_update.sql"
	qTransactionDelete  = "transaction_delete.sql"
	qTransactionsReport = "transactions_report.sql"
	qReportItems        = "report_items.sql"

	qAgreements       = "agreements.sql"
	qAgreement        = "agreement.sql"
	qAgreementInsert  = "agreement_insert.sql"
	qAgreementByToken = "agreement_by_token.sql"
	qAgreementSign    = "agreement_sign.sql"

	qSettings      = "settings.sql"
	qSettingUpsert = "setting_upsert.sql"

	qUserByUsername = "user_by_username.sql"
	qUserInsert     = "user_insert.sql"

	qDashboardMonthly  = "dashboard_monthly.sql"
	qDashboardUpcoming = "dashboard_upcoming.sql"
	qDashboardDresses  = "dashboard_dresses.sql"
)

// statementFiles lists every sql file prepared at connection time.
var statementFiles = []string{
	qCustomers, qCustomer, qCustomerByPhone, qCustomerInsert,
	qCustomerUpdate, qCustomerDelete, qCustomerMergeOrders,
	qCustomerMergeTransactions, qCustomerMergeHistory,
	qCustomerMergeAgreements,

	qDresses, qDress, qDressInsert, qDressUpdate, qDressPhotoUpdate,
	qDressSaleCount, qDressMarkSold, qDressRelease, qDressActivity,
	qDressHistory, qDressHistoryInsert,

	qOrders, qOrder, qOrderRow, qOrderItems, qOrderInsert, qOrderUpdate, qOrderCancel,
	qOrderDelete, qOrderSummaryUpdate, qOrderItemsDelete,
	qOrderItemInsert, qOrderSaleDresses, qOrderMergeItems,
	qOrderMergeTransactions, qOrderMergeAgreements, qOrderMergeHistory,
	qOrderTotals, qOrderMergeUpdate,

	qTransactions, qTransaction, qTransactionInsert, qTransactionUpdate,
	qTransactionDelete, qTransactionsReport, qReportItems,

	qAgreements, qAgreement, qAgreementInsert, qAgreementByToken,
	qAgreementSign,

	qSettings, qSettingUpsert,

	qUserByUsername, qUserInsert,

	qDashboardMonthly, qDashboardUpcoming, qDashboardDresses,
}
