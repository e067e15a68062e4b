// Package tags reads embedded audio tags into partial track metadata. Extraction is best
// effort: anything unreadable is simply absent.
package tags

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dhowden/tag"

	"go.senan.xyz/trackdex/musickey"
	"go.senan.xyz/trackdex/tempo"
	"go.senan.xyz/trackdex/track"
)

// Raw frame and field names carrying tempo and key across ID3v2, MP4 and Vorbis comments.
const (
	BPM = "BPM"
	Key = "INITIALKEY"
)

var alternatives = map[string]string{
	"TBPM":  BPM, // id3v2.3+
	"TBP":   BPM, // id3v2.2
	"TMPO":  BPM, // mp4
	"TEMPO": BPM,
	"TKEY":  Key, // id3v2.3+
	"TKE":   Key, // id3v2.2
	"KEY":   Key,
}

func NormKey(k string) string {
	k = strings.ToUpper(k)
	if nk, ok := alternatives[k]; ok {
		return nk
	}
	return k
}

// MaxPictureSize is the largest embedded cover kept as a data URI.
const MaxPictureSize = 5 << 20

func CanRead(path string) bool {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".mp3", ".flac", ".opus", ".aac", ".aif", ".aiff", ".ape", ".m4a", ".m4b", ".mp2", ".mpc", ".oga", ".ogg", ".spx", ".tak", ".wav", ".wma", ".wv", ".dsf":
		return true
	}
	return false
}

// Extract reads tags from raw file bytes. It returns nil when nothing usable is found.
func Extract(data []byte) *track.Metadata {
	m, err := tag.ReadFrom(bytes.NewReader(data))
	if err != nil {
		slog.Debug("read tags", "err", err)
		return nil
	}

	md := &track.Metadata{
		Title:   strings.TrimSpace(m.Title()),
		Artist:  strings.TrimSpace(m.Artist()),
		Album:   strings.TrimSpace(m.Album()),
		Genre:   strings.TrimSpace(m.Genre()),
		Year:    m.Year(),
		Comment: strings.TrimSpace(m.Comment()),
	}
	if md.Year < 0 {
		md.Year = 0
	}

	raw := normRaw(m.Raw())
	md.Tempo = tempo.Parse(raw[BPM])
	md.Key = musickey.Normalize(raw[Key])

	if pic := m.Picture(); pic != nil && len(pic.Data) > 0 && len(pic.Data) <= MaxPictureSize {
		md.Picture = dataURI(pic)
	}

	if *md == (track.Metadata{}) {
		return nil
	}
	return md
}

// normRaw flattens the raw frames we care about into strings under normalised keys.
func normRaw(raw map[string]any) map[string]string {
	res := map[string]string{}
	for k, v := range raw {
		nk := NormKey(k)
		if nk != BPM && nk != Key {
			continue
		}
		if _, ok := res[nk]; ok {
			continue
		}
		var s string
		switch v := v.(type) {
		case string:
			s = v
		case int:
			s = strconv.Itoa(v)
		case float64:
			s = strconv.FormatFloat(v, 'f', -1, 64)
		case fmt.Stringer:
			s = v.String()
		default:
			continue
		}
		if s = strings.TrimSpace(s); s != "" {
			res[nk] = s
		}
	}
	return res
}

func dataURI(pic *tag.Picture) string {
	mime := pic.MIMEType
	if mime == "" || !strings.Contains(mime, "/") {
		mime = http.DetectContentType(pic.Data)
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(pic.Data)
}
