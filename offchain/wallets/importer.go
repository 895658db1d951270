package wallets

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const (
	PrivateKeysFile  = "private_keys.txt"
	ProxiesFile      = "proxies.txt"
	CexAddressesFile = "cex_addresses.txt"
)

var ErrLineMismatch = errors.New("line count mismatch")

// Import builds records from the text files in dir. Lines pair up by
// position. Proxies are optional; cex addresses are required when
// requireCex is set.
func Import(dir string, requireCex bool) ([]Record, error) {
	keys, err := readLines(filepath.Join(dir, PrivateKeysFile), true)
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("%s: no private keys", PrivateKeysFile)
	}
	proxies, err := readLines(filepath.Join(dir, ProxiesFile), false)
	if err != nil {
		return nil, err
	}
	cex, err := readLines(filepath.Join(dir, CexAddressesFile), requireCex)
	if err != nil {
		return nil, err
	}

	if len(proxies) != 0 && len(proxies) != len(keys) {
		return nil, fmt.Errorf("%w: %d private keys, %d proxies", ErrLineMismatch, len(keys), len(proxies))
	}
	if (requireCex || len(cex) != 0) && len(cex) != len(keys) {
		return nil, fmt.Errorf("%w: %d private keys, %d cex addresses", ErrLineMismatch, len(keys), len(cex))
	}

	out := make([]Record, 0, len(keys))
	seen := make(map[string]struct{}, len(keys))
	for i, key := range keys {
		var proxy, dest string
		if len(proxies) != 0 {
			proxy = proxies[i]
		}
		if len(cex) != 0 {
			dest = cex[i]
		}
		r, err := NewRecord(key, proxy, dest)
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", PrivateKeysFile, i+1, err)
		}
		if _, dup := seen[r.Address]; dup {
			return nil, fmt.Errorf("%s line %d: %w: duplicate wallet %s", PrivateKeysFile, i+1, ErrInvalidRecord, r.Address)
		}
		seen[r.Address] = struct{}{}
		out = append(out, r)
	}
	return out, nil
}

func readLines(path string, required bool) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if !required && errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return lines, nil
}
