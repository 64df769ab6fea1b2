package store

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"steerd.dev/steerd/internal/wire"
)

// PermitLoadFile reads path, one MAC per line, and inserts each into the
// permit list. Blank lines and lines starting with '#' are ignored.
func (s *Store) PermitLoadFile(path string) error {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("store: open permit list %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		mac, err := wire.ParseMAC(line)
		if err != nil {
			return fmt.Errorf("store: permit list %s: %w", path, err)
		}
		s.PermitInsert(mac)
	}
	return scanner.Err()
}

// PermitAppendFile appends mac to the permit-list file. The file is
// append-only; the store itself is the sole mutator of the in-memory set.
func (s *Store) PermitAppendFile(path string, mac wire.MacAddr) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("store: append permit list %s: %w", path, err)
	}
	defer f.Close()
	_, err = fmt.Fprintln(f, mac.String())
	return err
}
