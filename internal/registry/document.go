package registry

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
)

// Category is the provider family owning a model id.
type Category string

const (
	OpenAI Category = "openai"
	Gemini Category = "gemini"
	Ollama Category = "ollama"
)

// Categories lists the sections in document order.
var Categories = []Category{OpenAI, Gemini, Ollama}

// ParseCategory validates a category name.
func ParseCategory(raw string) (Category, bool) {
	c := Category(raw)
	return c, slices.Contains(Categories, c)
}

// Entry is one registered model.
type Entry struct {
	ID           string   `json:"id"`
	Category     Category `json:"category"`
	ProviderName string   `json:"name,omitempty"`
	Endpoint     string   `json:"url,omitempty"`
}

// LocalModel is one entry of the ollama section.
type LocalModel struct {
	ID   string
	Name string
	URL  string
}

type localModelJSON struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// LocalModels is encoded as a JSON object keyed by id. Key order survives a
// decode/encode round trip.
type LocalModels []LocalModel

func (m LocalModels) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range m {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(e.ID)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(localModelJSON{Name: e.Name, URL: e.URL})
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (m *LocalModels) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*m = nil
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("ollama section must be an object")
	}

	out := LocalModels{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		id, _ := tok.(string)
		var v localModelJSON
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("ollama entry %q: %w", id, err)
		}
		entry := LocalModel{ID: id, Name: v.Name, URL: v.URL}
		if i := out.index(id); i >= 0 {
			out[i] = entry
			continue
		}
		out = append(out, entry)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*m = out
	return nil
}

func (m LocalModels) index(id string) int {
	return slices.IndexFunc(m, func(e LocalModel) bool { return e.ID == id })
}

// Document is the persisted catalog. Sections keep the order they had in
// the stored file; missing sections follow in Categories order.
type Document struct {
	OpenAI []string
	Gemini []string
	Ollama LocalModels

	order []Category
}

// SectionOrder returns the categories in storage order.
func (d Document) SectionOrder() []Category {
	out := make([]Category, 0, len(Categories))
	for _, c := range d.order {
		if slices.Contains(Categories, c) && !slices.Contains(out, c) {
			out = append(out, c)
		}
	}
	for _, c := range Categories {
		if !slices.Contains(out, c) {
			out = append(out, c)
		}
	}
	return out
}

func (d Document) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range d.SectionOrder() {
		if i > 0 {
			buf.WriteByte(',')
		}
		var v any
		switch c {
		case OpenAI:
			v = nonNil(d.OpenAI)
		case Gemini:
			v = nonNil(d.Gemini)
		case Ollama:
			v = d.Ollama
			if d.Ollama == nil {
				v = LocalModels{}
			}
		}
		b, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		fmt.Fprintf(&buf, "%q:", string(c))
		buf.Write(b)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (d *Document) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*d = Document{}
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("registry document must be an object")
	}

	var out Document
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := tok.(string)
		var target any
		switch Category(key) {
		case OpenAI:
			target = &out.OpenAI
		case Gemini:
			target = &out.Gemini
		case Ollama:
			target = &out.Ollama
		default:
			target = new(json.RawMessage)
		}
		if err := dec.Decode(target); err != nil {
			return fmt.Errorf("section %q: %w", key, err)
		}
		if c := Category(key); slices.Contains(Categories, c) && !slices.Contains(out.order, c) {
			out.order = append(out.order, c)
		}
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*d = out
	return nil
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}

// IDs returns the ids of one category, or of all categories in section
// order for "".
func (d Document) IDs(category Category) []string {
	switch category {
	case OpenAI:
		return slices.Clone(d.OpenAI)
	case Gemini:
		return slices.Clone(d.Gemini)
	case Ollama:
		ids := make([]string, 0, len(d.Ollama))
		for _, e := range d.Ollama {
			ids = append(ids, e.ID)
		}
		return ids
	}
	ids := make([]string, 0, len(d.OpenAI)+len(d.Gemini)+len(d.Ollama))
	for _, c := range d.SectionOrder() {
		ids = append(ids, d.IDs(c)...)
	}
	return ids
}

// CategoryOf reports which section holds id.
func (d Document) CategoryOf(id string) (Category, bool) {
	switch {
	case slices.Contains(d.OpenAI, id):
		return OpenAI, true
	case slices.Contains(d.Gemini, id):
		return Gemini, true
	case d.Ollama.index(id) >= 0:
		return Ollama, true
	}
	return "", false
}

// Local returns the ollama entry for id.
func (d Document) Local(id string) (Entry, bool) {
	i := d.Ollama.index(id)
	if i < 0 {
		return Entry{}, false
	}
	e := d.Ollama[i]
	return Entry{ID: e.ID, Category: Ollama, ProviderName: e.Name, Endpoint: e.URL}, true
}

func (d *Document) remove(id string) bool {
	removed := false
	drop := func(ids []string) []string {
		return slices.DeleteFunc(ids, func(v string) bool {
			if v == id {
				removed = true
				return true
			}
			return false
		})
	}
	d.OpenAI = drop(d.OpenAI)
	d.Gemini = drop(d.Gemini)
	d.Ollama = slices.DeleteFunc(d.Ollama, func(e LocalModel) bool {
		if e.ID == id {
			removed = true
			return true
		}
		return false
	})
	return removed
}

func (d *Document) normalize() {
	if d.OpenAI == nil {
		d.OpenAI = []string{}
	}
	if d.Gemini == nil {
		d.Gemini = []string{}
	}
	if d.Ollama == nil {
		d.Ollama = LocalModels{}
	}
}
