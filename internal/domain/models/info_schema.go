package models

import (
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Well-known info keys used by the aggregator.
const (
	InfoNetWeight            = "net_weight"
	InfoTotalPacketPerCarton = "total_packet_per_carton"
)

// InfoField is a known product attribute with its unit of measure.
type InfoField struct {
	Key  string
	Unit string
}

// InfoSchema lists the known info keys in display order.
var InfoSchema = []InfoField{
	{Key: "process_loss", Unit: "%"},
	{Key: InfoNetWeight, Unit: "gm"},
	{Key: "foil_weight", Unit: "gm"},
	{Key: "pouch_weight", Unit: "gm"},
	{Key: "biscuit_in_packet", Unit: "Pcs"},
	{Key: "cake_in_packet", Unit: "Pcs"},
	{Key: "bar_in_packet", Unit: "Pcs"},
	{Key: "masala_wrapper_weight", Unit: "gm"},
	{Key: InfoTotalPacketPerCarton, Unit: "Pcs"},
}

// InfoUnit returns the unit for key, or "" for keys outside the schema.
func InfoUnit(key string) string {
	for _, f := range InfoSchema {
		if f.Key == key {
			return f.Unit
		}
	}
	return ""
}

// OrderedInfoKeys returns the keys of info: schema keys first in schema order,
// then the remaining keys sorted.
func OrderedInfoKeys(info Info) []string {
	keys := make([]string, 0, len(info))
	seen := make(map[string]bool, len(info))
	for _, f := range InfoSchema {
		if _, ok := info[f.Key]; ok {
			keys = append(keys, f.Key)
			seen[f.Key] = true
		}
	}
	var rest []string
	for k := range info {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	return append(keys, rest...)
}

// NormalizeFieldName turns a label such as "Net Weight" into "net_weight".
func NormalizeFieldName(label string) string {
	return strings.Join(strings.Fields(strings.ToLower(label)), "_")
}

// FormatFieldName renders "net_weight" as "Net Weight".
func FormatFieldName(key string) string {
	caser := cases.Title(language.English)
	parts := strings.Split(key, "_")
	for i, p := range parts {
		parts[i] = caser.String(p)
	}
	return strings.Join(parts, " ")
}

// NormalizeInfoValue converts numeric strings to numbers and leaves other values untouched.
func NormalizeInfoValue(v any) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	s = strings.TrimSpace(s)
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}
