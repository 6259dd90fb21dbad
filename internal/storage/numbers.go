package storage

import (
	"fmt"
	"time"
)

// Human-facing business numbers are assigned exactly once, at creation.
//
// Order, invoice and PO numbers keep the historical PREFIX-YEAR-NNNNNN
// format (six trailing digits of the creation epoch millisecond) so that
// numbers generated by this implementation sort and read identically to
// existing data. The format can collide when two rows are created inside
// the same millisecond-truncated window; a unique index on each number
// column turns that into a Conflict the caller retries.
//
// Customer numbers use a dedicated database sequence instead, which is
// collision-free under concurrency. See migrations/0001_init.sql.

func orderNumber(now time.Time) string {
	return businessNumber("ORD", now)
}

func invoiceNumber(now time.Time) string {
	return businessNumber("INV", now)
}

func poNumber(now time.Time) string {
	return businessNumber("PO", now)
}

func businessNumber(prefix string, now time.Time) string {
	return fmt.Sprintf("%s-%d-%06d", prefix, now.Year(), now.UnixMilli()%1_000_000)
}
