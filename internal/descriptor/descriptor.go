package descriptor

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/beevik/etree"
	"golang.org/x/net/html/charset"

	"github.com/shinji-kodama/deploy-repack/internal/model"
)

const (
	// entityPath and propertiesPath are relative to the document root.
	entityPath     = "ra-entity"
	propertiesPath = "ra-entity/properties"
	propertyPath   = "./ra-entity/properties/property"

	// xmlDeclaration is written at the top of every serialized descriptor.
	xmlDeclaration = "version='1.0' encoding='UTF-8'"
)

// SchemaError reports a descriptor that lacks the element path the
// repackager needs.
type SchemaError struct {
	// Source is the descriptor file name.
	Source string

	// Missing is the element path (relative to the root) that was not found.
	Missing string
}

// Error implements the error interface.
func (e *SchemaError) Error() string {
	if e.Missing == "" {
		return fmt.Sprintf("deployment descriptor %s has no root element", e.Source)
	}
	return fmt.Sprintf("deployment descriptor %s: expected element %q under the root element", e.Source, e.Missing)
}

// UnmatchedOverridesError lists override names that matched no descriptor
// property. It is only returned when strict matching is requested.
type UnmatchedOverridesError struct {
	Names []string
}

// Error implements the error interface.
func (e *UnmatchedOverridesError) Error() string {
	return fmt.Sprintf("overrides match no descriptor property: %s", strings.Join(e.Names, ", "))
}

// Document is a parsed deployment descriptor.
type Document struct {
	source string
	doc    *etree.Document
}

// Load reads and parses the descriptor at path and checks its structure.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read deployment descriptor: %w", err)
	}
	return Parse(data, path)
}

// Parse parses descriptor bytes. source labels error messages.
//
// The document must contain ra-entity/properties below its root; a
// properties element without any property children is valid.
func Parse(data []byte, source string) (*Document, error) {
	doc := etree.NewDocument()
	// Descriptors may declare a legacy encoding; output is always UTF-8.
	doc.ReadSettings.CharsetReader = charset.NewReaderLabel
	// Tabs and newlines in attribute values must stay character references,
	// or a conforming parser reads them back as spaces.
	doc.WriteSettings.CanonicalAttrVal = true
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("failed to parse deployment descriptor %s: %w", source, err)
	}

	d := &Document{source: source, doc: doc}
	if err := d.validate(); err != nil {
		return nil, err
	}
	return d, nil
}

// validate checks the fixed ra-entity/properties path, reporting the first
// missing step.
func (d *Document) validate() error {
	root := d.doc.Root()
	if root == nil {
		return &SchemaError{Source: d.source}
	}
	if root.FindElement("./"+entityPath) == nil {
		return &SchemaError{Source: d.source, Missing: entityPath}
	}
	if root.FindElement("./"+propertiesPath) == nil {
		return &SchemaError{Source: d.source, Missing: propertiesPath}
	}
	return nil
}

// Value returns the value attribute of the first property named name.
func (d *Document) Value(name string) (string, bool) {
	for _, el := range d.doc.Root().FindElements(propertyPath) {
		if attr := el.SelectAttr("name"); attr != nil && attr.Value == name {
			return el.SelectAttrValue("value", ""), true
		}
	}
	return "", false
}

// Apply overwrites the value attribute of every property whose name is in
// overrides. It returns the changes in document order and the override
// names that matched nothing, sorted.
//
// Property elements without a name attribute are left alone. Applying the
// same overrides again yields the same document.
func (d *Document) Apply(overrides *model.OverrideSet) (changes []model.PropertyChange, unmatched []string) {
	matched := make(map[string]bool)

	for _, el := range d.doc.Root().FindElements(propertyPath) {
		nameAttr := el.SelectAttr("name")
		if nameAttr == nil {
			continue
		}
		newValue, ok := overrides.Get(nameAttr.Value)
		if !ok {
			continue
		}

		oldValue := el.SelectAttrValue("value", "")
		// CreateAttr replaces an existing attribute in place, so attribute
		// order on the element is kept.
		el.CreateAttr("value", newValue)

		matched[nameAttr.Value] = true
		changes = append(changes, model.PropertyChange{
			Name:     nameAttr.Value,
			OldValue: oldValue,
			NewValue: newValue,
		})
	}

	for _, name := range overrides.Names() {
		if !matched[name] {
			unmatched = append(unmatched, name)
		}
	}
	return changes, unmatched
}

// Bytes serializes the document as UTF-8 with an XML declaration.
func (d *Document) Bytes() ([]byte, error) {
	d.ensureDeclaration()
	out, err := d.doc.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize deployment descriptor: %w", err)
	}
	return out, nil
}

// ensureDeclaration rewrites an existing <?xml ...?> declaration, or
// inserts one, so the output always declares UTF-8.
func (d *Document) ensureDeclaration() {
	for _, tok := range d.doc.Child {
		if pi, ok := tok.(*etree.ProcInst); ok && pi.Target == "xml" {
			pi.Inst = xmlDeclaration
			return
		}
	}
	d.doc.InsertChildAt(0, etree.NewProcInst("xml", xmlDeclaration))
	d.doc.InsertChildAt(1, etree.NewText("\n"))
}

// WriteFile serializes the document to path, creating parent directories
// if they don't exist.
func (d *Document) WriteFile(path string) error {
	data, err := d.Bytes()
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write deployment descriptor to %s: %w", path, err)
	}
	return nil
}
