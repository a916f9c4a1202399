// Package xml converts typed request and response shapes to and from XML documents.
//
// A type takes part in encoding by building its own element tree, which is where
// element names, attributes and child order are decided. Decoding walks a parsed
// tree the same way. Missing optional elements never fail a document; they surface
// as mo.None or zero values in the decoded shape.
package xml

import (
	"errors"
	"fmt"

	"github.com/beevik/etree"
)

// Common XML tag names used in CalDAV
const (
	TagPropfind      = "propfind"
	TagProp          = "prop"
	TagMultistatus   = "multistatus"
	TagResponse      = "response"
	TagHref          = "href"
	TagPropstat      = "propstat"
	TagStatus        = "status"
	TagResourcetype  = "resourcetype"
	TagCollection    = "collection"
	TagCalendar      = "calendar"
	TagCalendarQuery = "calendar-query"
	TagCalendarData  = "calendar-data"
	TagFilter        = "filter"
	TagCompFilter    = "comp-filter"
	TagComp          = "comp"
)

// Encoder is implemented by values that render themselves as an element tree.
type Encoder interface {
	Encode() *etree.Element
}

// Decoder is implemented by pointers to values that populate themselves from an element.
type Decoder interface {
	Decode(elem *etree.Element) error
}

// DecoderPtr constrains T so that *T is a Decoder.
type DecoderPtr[T any] interface {
	*T
	Decoder
}

// SerializationError wraps a failure to encode a value.
type SerializationError struct {
	Err error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("xml serialization failed: %v", e.Err)
}

func (e *SerializationError) Unwrap() error { return e.Err }

// DeserializationError wraps a failure to decode a document.
type DeserializationError struct {
	Err error
}

func (e *DeserializationError) Error() string {
	return fmt.Sprintf("xml deserialization failed: %v", e.Err)
}

func (e *DeserializationError) Unwrap() error { return e.Err }

var (
	errNilElement    = errors.New("encoder produced no element")
	errEmptyDocument = errors.New("empty document")
)

// Marshal renders v as a complete XML document with a declaration.
func Marshal(v Encoder) (string, error) {
	if v == nil {
		return "", &SerializationError{Err: errNilElement}
	}
	root := v.Encode()
	if root == nil {
		return "", &SerializationError{Err: errNilElement}
	}

	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="utf-8"`)
	doc.SetRoot(root)

	s, err := doc.WriteToString()
	if err != nil {
		return "", &SerializationError{Err: err}
	}
	return s, nil
}

// Unmarshal parses text and decodes its root element into a new T.
func Unmarshal[T any, PT DecoderPtr[T]](text string) (T, error) {
	var v T

	doc := etree.NewDocument()
	if err := doc.ReadFromString(text); err != nil {
		return v, &DeserializationError{Err: err}
	}
	root := doc.Root()
	if root == nil {
		return v, &DeserializationError{Err: errEmptyDocument}
	}

	if err := PT(&v).Decode(root); err != nil {
		return v, &DeserializationError{Err: err}
	}
	return v, nil
}
