package packet

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Inbound message types.
const (
	TypeHello      = "hello"
	TypeMove       = "move"
	TypeCast       = "cast"
	TypeDisconnect = "disconnect"
)

var inboundTypes = []string{TypeHello, TypeMove, TypeCast, TypeDisconnect}

//go:embed schemas/*.schema.json
var schemaFS embed.FS

var (
	ErrMalformed   = errors.New("malformed message")
	ErrUnknownType = errors.New("unknown message type")
)

type Hello struct {
	Name string `json:"name"`
}

type Move struct {
	Dir int `json:"dir"`
}

// Cast targets (X, Y). Self-targeted spells may omit the coordinates.
type Cast struct {
	Spell string `json:"spell"`
	X     int    `json:"x"`
	Y     int    `json:"y"`
}

// Message is a validated inbound message.
type Message struct {
	Type string
	body []byte
}

// Bind unmarshals the message body into v.
func (m Message) Bind(v any) error {
	if err := json.Unmarshal(m.body, v); err != nil {
		return fmt.Errorf("bind %s: %w", m.Type, err)
	}
	return nil
}

// Decoder validates inbound JSON messages against their schemas.
type Decoder struct {
	schemas map[string]*jsonschema.Schema
}

func NewDecoder() (*Decoder, error) {
	c := jsonschema.NewCompiler()
	d := &Decoder{schemas: make(map[string]*jsonschema.Schema, len(inboundTypes))}
	for _, typ := range inboundTypes {
		name := "schemas/" + typ + ".schema.json"
		raw, err := schemaFS.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("read schema %s: %w", name, err)
		}
		if err := c.AddResource(name, bytes.NewReader(raw)); err != nil {
			return nil, fmt.Errorf("add schema %s: %w", name, err)
		}
		s, err := c.Compile(name)
		if err != nil {
			return nil, fmt.Errorf("compile schema %s: %w", name, err)
		}
		d.schemas[typ] = s
	}
	return d, nil
}

// Decode parses data and validates it against the schema for its type.
func (d *Decoder) Decode(data []byte) (Message, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	obj, ok := doc.(map[string]any)
	if !ok {
		return Message{}, fmt.Errorf("%w: not an object", ErrMalformed)
	}
	typ, _ := obj["type"].(string)
	s, ok := d.schemas[typ]
	if !ok {
		return Message{}, fmt.Errorf("%w: %q", ErrUnknownType, typ)
	}
	if err := s.Validate(doc); err != nil {
		return Message{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return Message{Type: typ, body: data}, nil
}
