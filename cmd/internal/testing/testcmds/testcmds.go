package testcmds

import (
	"bytes"
	"crypto/rand"
	"embed"
	"flag"
	"io"
	"log"
	"maps"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strconv"

	"go.senan.xyz/trackdex/tags"
	"go.senan.xyz/trackdex/track"
)

//go:embed testdata/responses
var responses embed.FS

// RegisterTransport serves the Spotify API from canned responses. Query strings are ignored,
// so every search returns the same tracks.
func RegisterTransport() {
	var t http.Transport
	t.RegisterProtocol("file", http.NewFileTransportFS(responses))

	os.Setenv("TRACKDEX_SPOTIFY_BASE_URL", "file:///testdata/responses/spotify/v1")
	os.Setenv("TRACKDEX_SPOTIFY_TOKEN", "test-token")
	os.Setenv("TRACKDEX_SPOTIFY_RATE_LIMIT", "0")

	http.DefaultTransport = &t
}

var frameIDs = map[string]string{
	"title":  "TIT2",
	"artist": "TPE1",
	"album":  "TALB",
	"genre":  "TCON",
	"year":   "TYER",
	"bpm":    "TBPM",
	"key":    "TKEY",
}

// Tag writes an mp3 holding only an ID3v2.3 tag, or checks what trackdex reads back from one.
//
//	tag write a.mp3 title "Song A" , bpm 124
//	tag check a.mp3 title "Song A" , key 8A
func Tag() {
	flag.Parse()

	op, path := flag.Arg(0), flag.Arg(1)
	pairs := parseTagMap(flag.Args()[2:])

	switch op {
	case "write":
		var frames [][2]string
		for _, k := range slices.Sorted(maps.Keys(pairs)) {
			id, ok := frameIDs[k]
			if !ok {
				log.Fatalf("unknown field %q", k)
			}
			frames = append(frames, [2]string{id, pairs[k]})
		}
		if err := os.MkdirAll(filepath.Dir(path), os.ModePerm); err != nil {
			log.Fatalf("mkdirall: %v", err)
		}
		if err := os.WriteFile(path, id3v23(frames...), 0o644); err != nil {
			log.Fatalf("write file: %v", err)
		}

	case "check":
		data, err := os.ReadFile(path)
		if err != nil {
			log.Fatalf("read file: %v", err)
		}
		md := tags.Extract(data)
		if md == nil {
			md = &track.Metadata{}
		}
		got := map[string]string{
			"title":  md.Title,
			"artist": md.Artist,
			"album":  md.Album,
			"genre":  md.Genre,
			"year":   strconv.Itoa(md.Year),
			"bpm":    strconv.FormatFloat(md.Tempo, 'f', -1, 64),
			"key":    md.Key,
		}
		var exit int
		for k, v := range pairs {
			if got[k] != v {
				log.Printf("%s %s exp %q got %q", path, k, v, got[k])
				exit = 1
			}
		}
		os.Exit(exit)

	default:
		log.Fatalf("bad op %s", op)
	}
}

func Touch() {
	flag.Parse()

	for _, p := range flag.Args() {
		if err := os.MkdirAll(filepath.Dir(p), os.ModePerm); err != nil {
			log.Fatalf("mkdirall: %v", err)
		}
		if _, err := os.Create(p); err != nil {
			log.Fatalf("err creating: %v", err)
		}
	}
}

func Rand() {
	flag.Parse()

	path, sizeStr := flag.Arg(0), flag.Arg(1)
	if path == "" || sizeStr == "" {
		log.Fatalf("bad args")
	}

	f, err := os.Create(path)
	if err != nil {
		log.Fatalf("error creating: %v", err)
	}
	defer f.Close()

	size, _ := strconv.Atoi(sizeStr)
	_, _ = io.Copy(f, io.LimitReader(rand.Reader, int64(size)))
}

func parseTagMap(args []string) map[string]string {
	r := make(map[string]string)
	var k string
	for _, v := range args {
		if v == "," {
			k = ""
			continue
		}
		if k == "" {
			k = v
			r[k] = ""
			continue
		}
		r[k] = v
	}
	return r
}

// id3v23 builds an ID3v2.3 tag of ISO-8859-1 text frames.
func id3v23(frames ...[2]string) []byte {
	var body bytes.Buffer
	for _, f := range frames {
		data := append([]byte{0x00}, f[1]...)
		body.WriteString(f[0])
		n := len(data)
		body.Write([]byte{byte(n >> 24), byte(n >> 16), byte(n >> 8), byte(n)})
		body.Write([]byte{0x00, 0x00})
		body.Write(data)
	}

	size := body.Len()
	var out bytes.Buffer
	out.WriteString("ID3")
	out.Write([]byte{0x03, 0x00, 0x00})
	out.Write([]byte{byte(size >> 21 & 0x7f), byte(size >> 14 & 0x7f), byte(size >> 7 & 0x7f), byte(size & 0x7f)})
	out.Write(body.Bytes())
	return out.Bytes()
}
