package rawhttp

import (
	"bytes"
	"math/rand"
	"sort"
	"strconv"
	"sync"
	"time"
)

// ProtocolVersion is written on every request line.
const ProtocolVersion = "HTTP/1.1"

// Target describes the request every work unit sends. It must not be
// modified once a run has started.
type Target struct {
	Host    string
	Port    int
	UseTLS  bool
	Path    string
	Method  string
	Headers map[string]string
	Body    []byte // nil means no body
}

// UserAgentPool is the fixed set of agents a request may advertise.
type UserAgentPool []string

// DefaultUserAgents mirrors the browser/bot mix flood has always shipped with.
var DefaultUserAgents = UserAgentPool{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/114.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Ubuntu; Linux x86_64; rv:114.0) Gecko/20100101 Firefox/114.0",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 12_5) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/15.1 Safari/605.1.15",
	"Mozilla/5.0 (Windows NT 6.1; WOW64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/109.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Linux; Android 10; SM-G973F) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/114.0.0.0 Mobile Safari/537.36",
	"Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)",
	"curl/7.79.1",
}

// Encoder renders targets into raw request bytes. The random source is
// shared by all workers, so picks are serialized.
type Encoder struct {
	agents UserAgentPool

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewEncoder returns an encoder drawing from agents with rnd. A nil or empty
// pool falls back to DefaultUserAgents; a nil rnd is seeded from the clock.
func NewEncoder(agents UserAgentPool, rnd *rand.Rand) *Encoder {
	if len(agents) == 0 {
		agents = DefaultUserAgents
	}
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Encoder{agents: append(UserAgentPool(nil), agents...), rnd: rnd}
}

// Agents returns a copy of the configured pool.
func (e *Encoder) Agents() UserAgentPool {
	return append(UserAgentPool(nil), e.agents...)
}

// UserAgent picks one agent uniformly.
func (e *Encoder) UserAgent() string {
	e.mu.Lock()
	idx := e.rnd.Intn(len(e.agents))
	e.mu.Unlock()
	return e.agents[idx]
}

// Encode renders t into the request wire format.
func (e *Encoder) Encode(t Target) []byte {
	var buf bytes.Buffer
	buf.Grow(256 + len(t.Body))

	writeLine(&buf, t.Method+" "+t.Path+" "+ProtocolVersion)
	writeHeader(&buf, "Host", t.Host)
	writeHeader(&buf, "User-Agent", e.UserAgent())

	keys := make([]string, 0, len(t.Headers))
	for k := range t.Headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		writeHeader(&buf, k, t.Headers[k])
	}

	if t.Body != nil {
		writeHeader(&buf, "Content-Length", strconv.Itoa(len(t.Body)))
	}
	writeHeader(&buf, "Connection", "close")
	buf.WriteString("\r\n")

	if t.Body != nil {
		buf.Write(t.Body)
	}
	return buf.Bytes()
}

func writeHeader(buf *bytes.Buffer, key, value string) {
	writeLine(buf, key+": "+value)
}

func writeLine(buf *bytes.Buffer, line string) {
	buf.WriteString(line)
	buf.WriteString("\r\n")
}
