package codec

import (
	"fmt"

	"github.com/bcltools/bcltools/model"
)

/*
filter:
	- header: zero(u32) = 0 | version(u32) = 3 | count(u32)
	- record: flag(u8), bit 0 set when the cluster passed filter

The fastq header carries the opposite question ("is filtered?"), so a kept
cluster is the letter N and a filtered-out cluster the letter Y.
*/

const (
	FilterMagic   = 0
	FilterVersion = 3

	FilterKept     = "N"
	FilterFiltered = "Y"
)

func EncodeFilter(pass bool) uint8 {
	if pass {
		return 1
	}
	return 0
}

// DecodeFilter looks at bit 0 only.
func DecodeFilter(flag uint8) bool {
	return flag&1 == 1
}

// ParseFilterToken maps the fastq is-filtered token to pass/fail.
func ParseFilterToken(token string) (bool, error) {
	switch token {
	case FilterKept:
		return true, nil
	case FilterFiltered:
		return false, nil
	}
	return false, fmt.Errorf("%w: filter token %q is neither %s nor %s", model.ErrEncoding, token, FilterKept, FilterFiltered)
}

func FilterToken(pass bool) string {
	if pass {
		return FilterKept
	}
	return FilterFiltered
}

type Filter struct{}

var (
	filterHeader = model.Schema{
		{Name: "zero", Type: model.Uint32},
		{Name: "version", Type: model.Uint32},
		{Name: "count", Type: model.Uint32},
	}
	filterRecord = model.Schema{{Name: "flag", Type: model.Uint8}}
)

func (Filter) Kind() Kind                 { return KindFILTER }
func (Filter) HeaderSchema() model.Schema { return filterHeader }
func (Filter) RecordSchema() model.Schema { return filterRecord }

func (Filter) Header(count uint32) []any {
	return []any{uint32(FilterMagic), uint32(FilterVersion), count}
}

func (Filter) Count(v model.Values) (uint32, error) {
	return countAt(v, 2)
}

func (Filter) FormatHeader(v model.Values) (string, error) {
	if _, err := countAt(v, 2); err != nil {
		return "", err
	}
	return formatValues(v), nil
}

func (Filter) FormatRecord(v model.Values) (string, error) {
	flag, err := field[uint8](v, 0)
	if err != nil {
		return "", err
	}
	return FilterToken(DecodeFilter(flag)), nil
}

// ParseRecord accepts the fastq token, Y or N.
func (Filter) ParseRecord(fields []string) ([]any, error) {
	if err := arity(fields, 1, KindFILTER); err != nil {
		return nil, err
	}
	pass, err := ParseFilterToken(fields[0])
	if err != nil {
		return nil, err
	}
	return []any{EncodeFilter(pass)}, nil
}
