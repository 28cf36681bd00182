// Copyright 2018 The klaytn Authors
// This file is part of the klaytn library.
//
// The klaytn library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The klaytn library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the klaytn library. If not, see <http://www.gnu.org/licenses/>.
//
// This file is derived from storage/database/db_manager.go's pluggable
// backend-interface pattern (2018/06/04), repurposed from blockchain KV
// storage onto a relational store for wrap/unwrap records.
package store

import (
	"errors"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/jinzhu/gorm"

	"github.com/bridgefoundry/wbtc-bridge/bridge"
	"github.com/bridgefoundry/wbtc-bridge/internal/log"
)

var logger = log.NewModuleLogger(log.ModuleStore)

// ErrDuplicateRecord is returned when an insert would violate the
// native_tx_id/burn_tx_hash uniqueness invariant.
var ErrDuplicateRecord = errors.New("store: duplicate record")

// Store is the persistence interface consumed by the admission API and the
// wrap/unwrap engines. All state-advancing methods take a row lock for the
// duration of the mutation so two overlapping scheduler ticks (or an
// admission write racing an engine tick) never step on the same record.
type Store interface {
	Close() error

	InsertWrap(rec *bridge.WrapRecord) error
	InsertUnwrap(rec *bridge.UnwrapRecord) error

	GetWrapByNativeTxID(nativeTxID string) (*bridge.WrapRecord, error)
	GetUnwrapByBurnTxHash(burnTxHash string) (*bridge.UnwrapRecord, error)

	WrapHistory(walletID string) ([]*bridge.WrapRecord, error)
	UnwrapHistory(walletID string) ([]*bridge.UnwrapRecord, error)

	// WrapsInState returns records in the given state eligible for
	// processing (last_error_at null or already past backoff is filtered by
	// the caller, the query only narrows by state to keep the sweep
	// proportional to in-flight records rather than total history).
	WrapsInState(state bridge.WrapState, limit int) ([]*bridge.WrapRecord, error)
	UnwrapsInState(state bridge.UnwrapState, limit int) ([]*bridge.UnwrapRecord, error)

	// WithWrapLock loads the row for update inside a transaction and hands it
	// to fn; if fn returns nil the (possibly mutated) record is saved and the
	// transaction committed, otherwise it is rolled back.
	WithWrapLock(id uint64, fn func(rec *bridge.WrapRecord) error) error
	WithUnwrapLock(id uint64, fn func(rec *bridge.UnwrapRecord) error) error

	UnwrapCountForSender(ethSender string) (int64, error)
}

type gormStore struct {
	db *gorm.DB
}

// Open dials the relational backend (MySQL via jinzhu/gorm) and ensures the
// schema exists.
func Open(dialect, dsn string) (Store, error) {
	db, err := gorm.Open(dialect, dsn)
	if err != nil {
		return nil, err
	}
	db.LogMode(false)
	if err := db.AutoMigrate(&bridge.WrapRecord{}, &bridge.UnwrapRecord{}).Error; err != nil {
		db.Close()
		return nil, err
	}
	logger.Info("store opened", "dialect", dialect)
	return &gormStore{db: db}, nil
}

func (s *gormStore) Close() error {
	return s.db.Close()
}

func (s *gormStore) InsertWrap(rec *bridge.WrapRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	err := s.db.Create(rec).Error
	if isDuplicateKeyErr(err) {
		return ErrDuplicateRecord
	}
	return err
}

func (s *gormStore) InsertUnwrap(rec *bridge.UnwrapRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	err := s.db.Create(rec).Error
	if isDuplicateKeyErr(err) {
		return ErrDuplicateRecord
	}
	return err
}

func (s *gormStore) GetWrapByNativeTxID(nativeTxID string) (*bridge.WrapRecord, error) {
	var rec bridge.WrapRecord
	err := s.db.Where("native_tx_id = ?", nativeTxID).First(&rec).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *gormStore) GetUnwrapByBurnTxHash(burnTxHash string) (*bridge.UnwrapRecord, error) {
	var rec bridge.UnwrapRecord
	err := s.db.Where("burn_tx_hash = ?", burnTxHash).First(&rec).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *gormStore) WrapHistory(walletID string) ([]*bridge.WrapRecord, error) {
	var recs []*bridge.WrapRecord
	err := s.db.Where("wallet_id = ?", walletID).Order("id desc").Find(&recs).Error
	return recs, err
}

func (s *gormStore) UnwrapHistory(walletID string) ([]*bridge.UnwrapRecord, error) {
	var recs []*bridge.UnwrapRecord
	err := s.db.Where("wallet_id = ?", walletID).Order("id desc").Find(&recs).Error
	return recs, err
}

func (s *gormStore) WrapsInState(state bridge.WrapState, limit int) ([]*bridge.WrapRecord, error) {
	var recs []*bridge.WrapRecord
	q := s.db.Where("state = ?", state).Order("id asc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&recs).Error
	return recs, err
}

func (s *gormStore) UnwrapsInState(state bridge.UnwrapState, limit int) ([]*bridge.UnwrapRecord, error) {
	var recs []*bridge.UnwrapRecord
	q := s.db.Where("state = ?", state).Order("id asc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&recs).Error
	return recs, err
}

// WithWrapLock takes a SELECT ... FOR UPDATE row lock for the life of the
// transaction so a racing admission write or overlapping scheduler tick
// cannot observe or clobber a half-advanced record.
func (s *gormStore) WithWrapLock(id uint64, fn func(rec *bridge.WrapRecord) error) error {
	tx := s.db.Begin()
	if tx.Error != nil {
		return tx.Error
	}
	var rec bridge.WrapRecord
	if err := tx.Set("gorm:query_option", "FOR UPDATE").First(&rec, id).Error; err != nil {
		tx.Rollback()
		return err
	}
	if err := fn(&rec); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Save(&rec).Error; err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit().Error
}

func (s *gormStore) WithUnwrapLock(id uint64, fn func(rec *bridge.UnwrapRecord) error) error {
	tx := s.db.Begin()
	if tx.Error != nil {
		return tx.Error
	}
	var rec bridge.UnwrapRecord
	if err := tx.Set("gorm:query_option", "FOR UPDATE").First(&rec, id).Error; err != nil {
		tx.Rollback()
		return err
	}
	if err := fn(&rec); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Save(&rec).Error; err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit().Error
}

func (s *gormStore) UnwrapCountForSender(ethSender string) (int64, error) {
	var count int64
	err := s.db.Model(&bridge.UnwrapRecord{}).Where("eth_sender = ?", ethSender).Count(&count).Error
	return count, err
}

func isDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}
	// jinzhu/gorm surfaces the mysql driver error verbatim; MySQL's duplicate
	// key error is 1062. Match on substring to avoid importing the mysql
	// driver's internal error type across the store boundary.
	msg := err.Error()
	return strings.Contains(msg, "1062") || strings.Contains(msg, "Duplicate entry") || strings.Contains(msg, "UNIQUE constraint")
}
