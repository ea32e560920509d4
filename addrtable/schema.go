package addrtable

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kestrad/procwarp/procmem"
)

// Schema is the declarative per-game/version address table definition:
//
//	bases:
//	  WorldChrMan:
//	    pattern: "48 8B 05 ?? ?? ?? ?? 48 85 C0"
//	    offset: 3
//	addresses:
//	  PlayerHP:
//	    base: WorldChrMan
//	    offsets: [0x80, 0x1F90, 0xD8]
//	    type: int
type Schema struct {
	Bases     map[string]BaseDef  `yaml:"bases"`
	Addresses map[string]ValueDef `yaml:"addresses"`
}

type BaseDef struct {
	Pattern string `yaml:"pattern"`
	Offset  int64  `yaml:"offset"`
}

type ValueDef struct {
	Base    string  `yaml:"base"`
	Offsets []int64 `yaml:"offsets"`
	Type    string  `yaml:"type"`
	Length  int     `yaml:"length"`
}

// Load parses and validates a schema document. Any structural error is fatal:
// a table with an unknown base reference, an empty offset chain or a bad type
// tag must never be silently accepted.
func Load(r io.Reader) (*Schema, error) {
	var s Schema
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedTable, err)
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func LoadFile(path string) (*Schema, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedTable, err)
	}
	defer f.Close()
	return Load(f)
}

func (s *Schema) validate() error {
	if len(s.Bases) == 0 {
		return fmt.Errorf("%w: no bases", ErrMalformedTable)
	}
	for name, def := range s.Bases {
		if _, err := procmem.ParsePattern(def.Pattern, def.Offset); err != nil {
			return fmt.Errorf("%w: base %q: %v", ErrMalformedTable, name, err)
		}
	}
	for name, def := range s.Addresses {
		if _, ok := s.Bases[def.Base]; !ok {
			return fmt.Errorf("%w: address %q references unknown base %q", ErrMalformedTable, name, def.Base)
		}
		if len(def.Offsets) == 0 {
			return fmt.Errorf("%w: address %q has an empty offset chain", ErrMalformedTable, name)
		}
		if _, err := def.valueType(); err != nil {
			return fmt.Errorf("%w: address %q: %v", ErrMalformedTable, name, err)
		}
	}
	return nil
}

func (d ValueDef) valueType() (procmem.ValueType, error) {
	switch d.Type {
	case "int":
		return procmem.ValueType{Kind: procmem.KindInt32}, nil
	case "float":
		return procmem.ValueType{Kind: procmem.KindFloat32}, nil
	case "bytes":
		if d.Length <= 0 {
			return procmem.ValueType{}, fmt.Errorf("bytes type requires a positive length, have %d", d.Length)
		}
		return procmem.ValueType{Kind: procmem.KindBytes, Len: d.Length}, nil
	}
	return procmem.ValueType{}, fmt.Errorf("unknown type tag %q", d.Type)
}
