package upnp

import (
	"encoding/xml"
	"errors"
	"fmt"
	"html"
	"io"
	"strings"
)

const (
	dcNamespace   = "http://purl.org/dc/elements/1.1/"
	upnpNamespace = "urn:schemas-upnp-org:metadata-1-0/upnp/"

	notImplemented = "NOT_IMPLEMENTED"
)

// TrackMetadata holds the fields read from a DIDL-Lite item.
type TrackMetadata struct {
	Title  string
	Artist string
	Album  string
}

// ParseDIDL reads title, artist and album from DIDL-Lite metadata. The
// input may still be entity-escaped, as it is when lifted out of a SOAP body.
func ParseDIDL(metadata string) (TrackMetadata, error) {
	var md TrackMetadata
	metadata = strings.TrimSpace(metadata)
	if metadata == "" || metadata == notImplemented {
		return md, nil
	}

	dec := xml.NewDecoder(strings.NewReader(html.UnescapeString(metadata)))
	dec.Strict = false

	var field *string
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return md, fmt.Errorf("failed to parse DIDL-Lite metadata: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			field = nil
			switch {
			case t.Name.Space == dcNamespace && t.Name.Local == "title" && md.Title == "":
				field = &md.Title
			case t.Name.Space == upnpNamespace && t.Name.Local == "artist" && md.Artist == "":
				field = &md.Artist
			case t.Name.Space == upnpNamespace && t.Name.Local == "album" && md.Album == "":
				field = &md.Album
			}
		case xml.CharData:
			if field != nil {
				*field += string(t)
			}
		case xml.EndElement:
			field = nil
		}
	}

	md.Title = strings.TrimSpace(md.Title)
	md.Artist = strings.TrimSpace(md.Artist)
	md.Album = strings.TrimSpace(md.Album)
	return md, nil
}
