package grassapi

import (
	"encoding/hex"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func byteArray(n int, start byte) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprint(int(start) + i)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

func TestDecodeProof_FiltersEntries(t *testing.T) {
	input := `[
		{"data":{"type":"Buffer","data":` + byteArray(32, 1) + `}},
		{"data":{"type":"Other","data":` + byteArray(32, 1) + `}},
		{"data":{"type":"Buffer","data":[1,2,3]}}
	]`

	got := DecodeProof(input)
	require.Len(t, got, 1)
	for i, b := range got[0] {
		require.Equal(t, byte(i+1), b)
	}
}

func TestDecodeProof_PreservesOrder(t *testing.T) {
	input := `[
		{"data":{"type":"Buffer","data":` + byteArray(32, 100) + `}},
		{"data":{"type":"Buffer","data":` + byteArray(32, 0) + `}}
	]`
	got := DecodeProof(input)
	require.Len(t, got, 2)
	require.Equal(t, byte(100), got[0][0])
	require.Equal(t, byte(0), got[1][0])
}

func TestDecodeProof_Unparsable(t *testing.T) {
	for _, in := range []string{"", "not json", `{"data":1}`, `"str"`} {
		got := DecodeProof(in)
		require.NotNil(t, got, in)
		require.Empty(t, got, in)
	}
}

func TestDecodeProof_PositionalVariant(t *testing.T) {
	node := make([]byte, 32)
	for i := range node {
		node[i] = 0xAB
	}
	input := `[
		{"data":{"0":"Buffer","1":"` + hex.EncodeToString(node) + `"}},
		{"data":{"0":"Buffer","1":"abcd"}},
		{"data":{"0":"String","1":"` + hex.EncodeToString(node) + `"}}
	]`
	got := DecodeProof(input)
	require.Len(t, got, 1)
	require.Equal(t, byte(0xAB), got[0][31])
}

func TestDecodeProof_MalformedEntryEmptiesProof(t *testing.T) {
	good := `{"data":{"type":"Buffer","data":` + byteArray(32, 1) + `}}`
	outOfRange := strings.Replace(byteArray(32, 1), "[1,", "[256,", 1)

	for name, entry := range map[string]string{
		"byte out of range":   `{"data":{"type":"Buffer","data":` + outOfRange + `}}`,
		"string data":         `{"data":{"type":"Buffer","data":"` + strings.Repeat("ab", 32) + `"}}`,
		"no buffer shape":     `{"data":{"kind":"Buffer"}}`,
		"missing data":        `{}`,
		"undecodable payload": `{"data":{"0":"Buffer","1":"!!"}}`,
	} {
		t.Run(name, func(t *testing.T) {
			got := DecodeProof("[" + good + "," + entry + "]")
			require.NotNil(t, got)
			require.Empty(t, got)
		})
	}
}
