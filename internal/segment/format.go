// Package segment implements the on-disk binary layout shared by spill
// files (unsorted-flush output of the Partition Builder) and partition
// files (the K-way merge/split pipeline's final, directory-indexed
// output). Records are framed with explicit field tags and varint
// integers via protowire, so partitions stream record-by-record without
// a generated protobuf layer.
package segment

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/Adithya-Monish-Kumar-K/searchcore/internal/posting"
)

const (
	fieldToken    protowire.Number = 1
	fieldPostings protowire.Number = 2

	fieldDocID     protowire.Number = 1
	fieldFrequency protowire.Number = 2
	fieldTagFreq   protowire.Number = 3

	fieldTag  protowire.Number = 1
	fieldFreq protowire.Number = 2
)

// EncodeTokenEntry serializes a TokenEntry as a length-delimited protowire
// message: field 1 is the token string, field 2 is a repeated embedded
// Posting message (doc id, frequency, repeated tag-frequency pairs).
func EncodeTokenEntry(e posting.TokenEntry) []byte {
	var b []byte
	b = protowire.AppendTag(b, fieldToken, protowire.BytesType)
	b = protowire.AppendString(b, e.Token)
	for _, p := range e.Postings {
		post := encodePosting(p)
		b = protowire.AppendTag(b, fieldPostings, protowire.BytesType)
		b = protowire.AppendBytes(b, post)
	}
	return b
}

func encodePosting(p posting.Posting) []byte {
	var b []byte
	b = protowire.AppendTag(b, fieldDocID, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(p.DocID))
	b = protowire.AppendTag(b, fieldFrequency, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(p.Frequency))
	for tag, freq := range p.TagFrequency {
		var tf []byte
		tf = protowire.AppendTag(tf, fieldTag, protowire.VarintType)
		tf = protowire.AppendVarint(tf, uint64(tag))
		tf = protowire.AppendTag(tf, fieldFreq, protowire.VarintType)
		tf = protowire.AppendVarint(tf, uint64(freq))
		b = protowire.AppendTag(b, fieldTagFreq, protowire.BytesType)
		b = protowire.AppendBytes(b, tf)
	}
	return b
}

// DecodeTokenEntry parses a TokenEntry encoded by EncodeTokenEntry.
func DecodeTokenEntry(b []byte) (posting.TokenEntry, error) {
	var e posting.TokenEntry
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return e, fmt.Errorf("segment: consuming tag: %w", protowire.ParseError(n))
		}
		b = b[n:]
		switch num {
		case fieldToken:
			v, n := protowire.ConsumeString(b)
			if n < 0 {
				return e, fmt.Errorf("segment: consuming token: %w", protowire.ParseError(n))
			}
			e.Token = v
			b = b[n:]
		case fieldPostings:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return e, fmt.Errorf("segment: consuming posting: %w", protowire.ParseError(n))
			}
			p, err := decodePosting(v)
			if err != nil {
				return e, err
			}
			e.Postings = append(e.Postings, p)
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return e, fmt.Errorf("segment: skipping unknown field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	return e, nil
}

func decodePosting(b []byte) (posting.Posting, error) {
	p := posting.Posting{TagFrequency: make(map[posting.Tag]uint32)}
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return p, fmt.Errorf("segment: consuming posting tag: %w", protowire.ParseError(n))
		}
		b = b[n:]
		switch num {
		case fieldDocID:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return p, fmt.Errorf("segment: consuming doc id: %w", protowire.ParseError(n))
			}
			p.DocID = uint32(v)
			b = b[n:]
		case fieldFrequency:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return p, fmt.Errorf("segment: consuming frequency: %w", protowire.ParseError(n))
			}
			p.Frequency = uint32(v)
			b = b[n:]
		case fieldTagFreq:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return p, fmt.Errorf("segment: consuming tag frequency: %w", protowire.ParseError(n))
			}
			tag, freq, err := decodeTagFreq(v)
			if err != nil {
				return p, err
			}
			p.TagFrequency[tag] = freq
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return p, fmt.Errorf("segment: skipping unknown posting field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	return p, nil
}

func decodeTagFreq(b []byte) (posting.Tag, uint32, error) {
	var tag posting.Tag
	var freq uint32
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return tag, freq, fmt.Errorf("segment: consuming tag-freq tag: %w", protowire.ParseError(n))
		}
		b = b[n:]
		switch num {
		case fieldTag:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return tag, freq, fmt.Errorf("segment: consuming tag: %w", protowire.ParseError(n))
			}
			tag = posting.Tag(v)
			b = b[n:]
		case fieldFreq:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return tag, freq, fmt.Errorf("segment: consuming freq: %w", protowire.ParseError(n))
			}
			freq = uint32(v)
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return tag, freq, fmt.Errorf("segment: skipping unknown tag-freq field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	return tag, freq, nil
}
