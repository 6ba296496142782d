package storage

import (
	"sort"
	"strings"
)

// Keys of the repository configuration record.
const (
	ConfigVersion = "version"
	ConfigHash    = "hash_function"
	ConfigCreated = "created"

	FormatVersion = "1"
)

// EncodeConfig renders cfg as "key\tvalue\n" lines sorted by key.
func EncodeConfig(cfg map[string]string) []byte {
	keys := make([]string, 0, len(cfg))
	for k := range cfg {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	for _, k := range keys {
		sb.WriteString(k)
		sb.WriteByte('\t')
		sb.WriteString(cfg[k])
		sb.WriteByte('\n')
	}
	return []byte(sb.String())
}

// DecodeConfig parses the output of EncodeConfig. Lines without a tab are
// ignored.
func DecodeConfig(data []byte) map[string]string {
	cfg := make(map[string]string)
	for _, line := range strings.Split(string(data), "\n") {
		k, v, ok := strings.Cut(line, "\t")
		if !ok {
			continue
		}
		cfg[k] = v
	}
	return cfg
}
