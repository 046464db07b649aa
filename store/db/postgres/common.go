package postgres

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// placeholder returns a positional placeholder for PostgreSQL ($1, $2, ...)
func placeholder(n int) string {
	return fmt.Sprintf("$%d", n)
}

// placeholders returns $1..$n
func placeholders(n int) string {
	list := []string{}
	for i := 0; i < n; i++ {
		list = append(list, placeholder(i+1))
	}
	return strings.Join(list, ", ")
}

func nowTs(ts int64) int64 {
	if ts != 0 {
		return ts
	}
	return time.Now().Unix()
}

func encodeStrings(list []string) string {
	if len(list) == 0 {
		return "[]"
	}
	bytes, err := json.Marshal(list)
	if err != nil {
		return "[]"
	}
	return string(bytes)
}

func decodeStrings(raw string) []string {
	var list []string
	if raw == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		return nil
	}
	return list
}
