// Package transactions provides the local persistence layer for
// transactions. It mirrors the budgets repository and adds the queries that
// depend on the budget foreign key: cascade deletion of a budget's children
// and reassignment of children when a budget receives its server id.
package transactions
