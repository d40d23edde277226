package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/Spok95/face-rating-bot/internal/models"
)

func ranked(ids ...string) []models.RankedImage {
	out := make([]models.RankedImage, 0, len(ids))
	for i, id := range ids {
		out = append(out, models.RankedImage{ImageID: id, Mean: float64(10 - i), Valid: 2})
	}
	return out
}

func ids(xs []models.RankedImage) string {
	s := ""
	for _, x := range xs {
		s += x.ImageID
	}
	return s
}

func TestSplitRanked(t *testing.T) {
	cases := []struct {
		name        string
		in          []models.RankedImage
		n           int
		top, bottom string
	}{
		{"enough_for_disjoint", ranked("a", "b", "c", "d", "e", "f"), 3, "abc", "fed"},
		{"overlap_when_short", ranked("a", "b", "c", "d"), 3, "abc", "dcb"},
		{"n_larger_than_list", ranked("a", "b"), 5, "ab", "ba"},
		{"empty", nil, 3, "", ""},
		{"zero_n", ranked("a", "b"), 0, "", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			top, bottom := SplitRanked(tc.in, tc.n)
			if ids(top) != tc.top || ids(bottom) != tc.bottom {
				t.Fatalf("top=%q bottom=%q, ожидали %q/%q", ids(top), ids(bottom), tc.top, tc.bottom)
			}
			if top == nil || bottom == nil {
				t.Fatal("списки не должны быть nil")
			}
		})
	}
}

func TestStorageErr(t *testing.T) {
	if storageErr("op", nil) != nil {
		t.Fatal("nil должен остаться nil")
	}
	cause := errors.New("connection refused")
	err := storageErr("save rating", cause)
	if !errors.Is(err, ErrStorage) || !errors.Is(err, cause) {
		t.Fatalf("errors.Is не сработал: %v", err)
	}
	var se *StorageError
	if !errors.As(err, &se) || se.Op != "save rating" {
		t.Fatalf("errors.As: %#v", err)
	}
	// повторная обёртка не добавляет слоёв
	wrapped := storageErr("outer", fmt.Errorf("ctx: %w", err))
	if !errors.As(wrapped, &se) || se.Op != "save rating" {
		t.Fatalf("op = %q", se.Op)
	}
}
