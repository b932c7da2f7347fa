// Package jsonparsers parses the four JSON source files tolerated by an
// ingest: friends, chat-history, snap-history, and memories — all tolerant
// to missing files (spec.md §4.5).
package jsonparsers

import (
	"encoding/json"
	"io"
	"os"

	"github.com/snapindex/snapindex/pkg/apperror"
	"github.com/snapindex/snapindex/pkg/models"
)

// friendsCategories is the flattened set of sections in friends.json
// (spec.md §4.5).
var friendsCategories = []string{"Friends", "Blocked Users", "Deleted Friends", "Hidden Friend Suggestions"}

type friendEntry struct {
	Username    string `json:"Username"`
	DisplayName string `json:"Display Name"`
}

type friendsDocument map[string][]friendEntry

// ParseFriends flattens the four friend categories, keeping rows with a
// non-empty username and mapping empty display names to absent.
func ParseFriends(path string) ([]models.Person, error) {
	data, ok, err := readOptional(path)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	var doc friendsDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, apperror.JSON("parse friends.json", err)
	}

	var out []models.Person
	seen := map[string]bool{}
	for _, category := range friendsCategories {
		for _, entry := range doc[category] {
			if entry.Username == "" || seen[entry.Username] {
				continue
			}
			seen[entry.Username] = true
			p := models.Person{Username: entry.Username}
			if entry.DisplayName != "" {
				name := entry.DisplayName
				p.DisplayName = &name
			}
			out = append(out, p)
		}
	}
	return out, nil
}

// readOptional reads a file that may not exist, returning ok=false (with no
// error) when it is absent — the "tolerant to missing files" rule that
// applies to every JSON source (spec.md §4.5, §7).
func readOptional(path string) ([]byte, bool, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, apperror.IO("open "+path, err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, false, apperror.IO("read "+path, err)
	}
	return data, true, nil
}
