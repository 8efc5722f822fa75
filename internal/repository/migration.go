package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// SplitStatements 去掉 "--" 注释行后按分号切分
// 脚本中不能出现含分号的函数体或字符串
func SplitStatements(script string) []string {
	var b strings.Builder
	for _, line := range strings.Split(script, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	var out []string
	for _, stmt := range strings.Split(b.String(), ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}

// ApplyStatements 在一个事务内顺序执行，任何一条失败整体回滚
// onApplied 可为 nil，用于打印进度
func ApplyStatements(ctx context.Context, db *sql.DB, statements []string, onApplied func(i int, stmt string)) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin migration: %w", err)
	}
	defer tx.Rollback()

	for i, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to execute statement %d (%s): %w", i+1, firstLine(stmt), err)
		}
		if onApplied != nil {
			onApplied(i, stmt)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration: %w", err)
	}
	return nil
}

func firstLine(stmt string) string {
	if i := strings.IndexByte(stmt, '\n'); i >= 0 {
		return stmt[:i]
	}
	return stmt
}
