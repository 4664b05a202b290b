package duckdb

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"sort"

	goduckdb "github.com/marcboeker/go-duckdb"
)

// Table names a per-locus observation table.
type Table string

// Observation tables.
const (
	DepthTable     Table = "reference_depths"
	EditRatioTable Table = "reference_edit_ratios"
)

// WriteDistribution batch-inserts per-locus values into a table using the
// Appender API. Loci are appended in sorted order, values in slice order.
func (s *Store) WriteDistribution(table Table, values map[string][]float64) error {
	if len(values) == 0 {
		return nil
	}

	trids := make([]string, 0, len(values))
	for trid := range values {
		trids = append(trids, trid)
	}
	sort.Strings(trids)

	conn, err := s.db.Conn(context.Background())
	if err != nil {
		return fmt.Errorf("get connection: %w", err)
	}
	defer conn.Close()

	var appender *goduckdb.Appender
	if err := conn.Raw(func(driverConn any) error {
		var err error
		appender, err = goduckdb.NewAppenderFromConn(driverConn.(driver.Conn), "", string(table))
		return err
	}); err != nil {
		return fmt.Errorf("create appender: %w", err)
	}
	defer appender.Close()

	for _, trid := range trids {
		for _, v := range values[trid] {
			if err := appender.AppendRow(trid, v); err != nil {
				return fmt.Errorf("append %s row: %w", table, err)
			}
		}
	}

	return appender.Flush()
}

// Distribution reads every locus of a table with values in ascending order.
func (s *Store) Distribution(table Table) (map[string][]float64, error) {
	rows, err := s.db.Query(`SELECT trid, value FROM ` + string(table) + ` ORDER BY trid, value`)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	defer rows.Close()

	values := make(map[string][]float64)
	for rows.Next() {
		var trid string
		var v float64
		if err := rows.Scan(&trid, &v); err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		values[trid] = append(values[trid], v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", table, err)
	}
	return values, nil
}

// WriteChromosomes stores the chromosome of every locus.
func (s *Store) WriteChromosomes(chroms map[string]string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO reference_loci (trid, chrom) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare locus insert: %w", err)
	}
	defer stmt.Close()

	for trid, chrom := range chroms {
		if _, err := stmt.Exec(trid, chrom); err != nil {
			return fmt.Errorf("insert locus %s: %w", trid, err)
		}
	}
	return tx.Commit()
}

// Chromosomes returns the stored chromosome of every locus.
func (s *Store) Chromosomes() (map[string]string, error) {
	rows, err := s.db.Query(`SELECT trid, chrom FROM reference_loci`)
	if err != nil {
		return nil, fmt.Errorf("query loci: %w", err)
	}
	defer rows.Close()

	chroms := make(map[string]string)
	for rows.Next() {
		var trid, chrom string
		if err := rows.Scan(&trid, &chrom); err != nil {
			return nil, fmt.Errorf("scan locus: %w", err)
		}
		chroms[trid] = chrom
	}
	return chroms, rows.Err()
}

// SetMeta records a metadata value.
func (s *Store) SetMeta(key, value string) error {
	_, err := s.db.Exec(`INSERT OR REPLACE INTO reference_meta (key, value) VALUES (?, ?)`, key, value)
	return err
}

// Meta returns a metadata value and whether it was set.
func (s *Store) Meta(key string) (string, bool, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM reference_meta WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("query meta %s: %w", key, err)
	}
	return value, true, nil
}

// Clear removes all stored distributions and metadata.
func (s *Store) Clear() error {
	for _, table := range []string{string(DepthTable), string(EditRatioTable), "reference_loci", "reference_meta"} {
		if _, err := s.db.Exec("DELETE FROM " + table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	return nil
}
