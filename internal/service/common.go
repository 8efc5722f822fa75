package service

import (
	"database/sql"
	"strings"

	"floor-data/internal/apperr"

	"go.uber.org/zap"
)

// logFailure 业务拒绝（validation / not_found / conflict）记 Warn，存储失败记 Error
func logFailure(logger *zap.Logger, msg string, err error, fields ...zap.Field) {
	fields = append(fields, zap.Error(err))
	if apperr.TypeOf(err) == apperr.TypePersistence {
		logger.Error(msg, fields...)
		return
	}
	logger.Warn(msg, fields...)
}

// trimPtr 去除首尾空白（nil 保持 nil）
func trimPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}

func toNullString(s string) sql.NullString {
	s = strings.TrimSpace(s)
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullStringsEqual(a, b sql.NullString) bool {
	if !a.Valid && !b.Valid {
		return true
	}
	return a.Valid && b.Valid && a.String == b.String
}
