package store

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
)

// BackupSuffix is appended to every compressed backup file name.
const BackupSuffix = ".db.zst"

// Backup writes a consistent copy of the whole database to path, compressed
// with zstd. path must not exist.
func (m *Maintenance) Backup(ctx context.Context, path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("backup: %s already exists", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("backup: create dir: %w", err)
	}

	raw := path + ".tmp"
	_ = os.Remove(raw)
	defer os.Remove(raw)

	// VACUUM INTO cannot run inside a transaction; the exclusive lock keeps
	// every other statement out.
	if _, err := m.s.db.ExecContext(ctx, `VACUUM INTO ?`, raw); err != nil {
		return fmt.Errorf("backup: vacuum into: %w", err)
	}

	if err := compressFile(raw, path); err != nil {
		_ = os.Remove(path)
		return fmt.Errorf("backup: %w", err)
	}
	return nil
}

// RestoreBackup replaces the database file at dbPath with the contents of a
// backup written by Maintenance.Backup. The database must not be open.
func RestoreBackup(backupPath, dbPath string) error {
	tmp := dbPath + ".restore"
	if err := decompressFile(backupPath, tmp); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("restore backup: %w", err)
	}

	// Stale WAL files would be replayed over the restored pages.
	for _, suffix := range []string{"-wal", "-shm"} {
		if err := os.Remove(dbPath + suffix); err != nil && !os.IsNotExist(err) {
			_ = os.Remove(tmp)
			return fmt.Errorf("restore backup: remove %s: %w", suffix, err)
		}
	}

	if err := os.Rename(tmp, dbPath); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("restore backup: %w", err)
	}
	return nil
}

func compressFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	defer out.Close()

	enc, err := zstd.NewWriter(out)
	if err != nil {
		return fmt.Errorf("zstd writer: %w", err)
	}
	if _, err := io.Copy(enc, in); err != nil {
		enc.Close()
		return fmt.Errorf("compress: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("compress: %w", err)
	}
	return out.Sync()
}

func decompressFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()

	dec, err := zstd.NewReader(in)
	if err != nil {
		return fmt.Errorf("zstd reader: %w", err)
	}
	defer dec.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, dec); err != nil {
		return fmt.Errorf("decompress: %w", err)
	}
	return out.Sync()
}
