package main

import (
	"fmt"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/hupe1980/strata/codec"
	"github.com/hupe1980/strata/model"
)

// textCodec stores textual record values under any built-in codec tag, so the
// command line tool can handle every value encoding as a string.
type textCodec struct{ tag uint8 }

func (c textCodec) Tag() uint8   { return c.tag }
func (c textCodec) Name() string { return codec.NameOf(c.tag) }

func (c textCodec) Append(dst []byte, v string) ([]byte, error) {
	switch c.tag {
	case codec.TagUint64:
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return dst, err
		}
		return codec.Uint64{}.Append(dst, n)
	case codec.TagInt64:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return dst, err
		}
		return codec.Int64{}.Append(dst, n)
	case codec.TagJSON:
		if !json.Valid([]byte(v)) {
			return dst, fmt.Errorf("invalid JSON %q", v)
		}
	}
	return append(dst, v...), nil
}

func (c textCodec) Decode(data []byte) (string, error) {
	switch c.tag {
	case codec.TagUint64:
		n, err := codec.Uint64{}.Decode(data)
		if err != nil {
			return "", err
		}
		return strconv.FormatUint(n, 10), nil
	case codec.TagInt64:
		n, err := codec.Int64{}.Decode(data)
		if err != nil {
			return "", err
		}
		return strconv.FormatInt(n, 10), nil
	}
	return string(data), nil
}

func valueTag(name string) (uint8, error) {
	for _, tag := range []uint8{codec.TagBytes, codec.TagString, codec.TagUint64, codec.TagInt64, codec.TagJSON} {
		if codec.NameOf(tag) == name {
			return tag, nil
		}
	}
	return 0, fmt.Errorf("unknown value codec %q", name)
}

func keyTag(name string) (model.KeyTag, error) {
	for t := model.KeyTagInt32; t <= model.KeyTagFloat64; t++ {
		if t.String() == name {
			return t, nil
		}
	}
	return model.KeyTagInvalid, fmt.Errorf("unknown key type %q", name)
}
