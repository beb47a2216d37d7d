package enrich

import (
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hejijunhao/watchpath/internal/model"
)

const loginChunk = `2001:db8::abcd:1-9 - - [28/Oct/2025:00:00:02 +0000] "PUT /api/report HTTP/1.1" 400 2572 "-" "PostmanRuntime/7.32.2"
2001:db8::abcd:1-9 - - [28/Oct/2025:00:00:02 +0000] "GET /socket.io/?EIO=4&transport=websocket HTTP/1.0" 101 0 "-" "Googlebot/2.1 (+http://www.google.com/bot.html)"
2001:db8::abcd:1-9 - - [28/Oct/2025:00:00:02 +0000] "POST /login HTTP/1.1" 401 854 "https://app.example.com/login" "Mozilla/5.0 (iPhone; CPU iPhone OS 18_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/18.0 Mobile/15E148 Safari/604.1"`

func TestNoteIsInformative(t *testing.T) {
	tests := []struct {
		note string
		want bool
	}{
		{"", false},
		{"   ", false},
		{"No analyst note provided.", false},
		{"N/A", false},
		{"none", false},
		{"95%", false},
		{"0.42", false},
		{"Score: 0.9", false},
		{"anomaly score 80%", false},
		{"ok!", false},
		{"abc-def", false},
		{"Suspicious login burst", true},
		{"Scanner probing /wp-admin", true},
	}
	for _, tt := range tests {
		t.Run(tt.note, func(t *testing.T) {
			assert.Equal(t, tt.want, NoteIsInformative(tt.note))
		})
	}
}

func TestEvidenceIsInformative(t *testing.T) {
	chunk := "  line one  \r\nline two\n\n"
	tests := []struct {
		name string
		ev   model.Evidence
		want bool
	}{
		{"absent", model.NoEvidence(), false},
		{"all empty", model.EvidenceList([]string{"", "  "}), false},
		{"single echo", model.SingleEvidence("line one\nline two"), false},
		{"list echo", model.EvidenceList([]string{" line one\nline two "}), false},
		{"single other", model.SingleEvidence("line one"), true},
		{"two items", model.EvidenceList([]string{"line one\nline two", "x"}), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EvidenceIsInformative(tt.ev, chunk))
		})
	}
}

func TestEnrich_LoginErrors(t *testing.T) {
	note, ev := Enrich("95%", model.NoEvidence(), loginChunk)

	assert.Equal(t, strings.Join([]string{
		"Detected 2 error responses (1× PUT /api/report → 400; 1× POST /login → 401).",
		"Observed 1 failed login attempt.",
		"Write operations observed: 1× PUT /api/report (400×1); 1× POST /login (401×1).",
	}, "\n"), note)
	assert.Equal(t, []string{
		"1× PUT /api/report → 400",
		"1× POST /login → 401",
		"1× PUT /api/report (400×1)",
		"1× POST /login (401×1)",
	}, ev.Items())
	assert.Contains(t, strings.ToLower(note), "error response")
}

func TestEnrich_ReplacesEchoedEvidence(t *testing.T) {
	_, ev := Enrich("95%", model.EvidenceList([]string{loginChunk}), loginChunk)

	require.False(t, ev.IsAbsent())
	assert.NotEqual(t, []string{loginChunk}, ev.Items())
}

func TestEnrich_ReplacesRawEchoedEvidence(t *testing.T) {
	chunk := `1.1.1.1 - - [10/Oct/2025:13:55:36 +0000] "POST /login HTTP/1.1" 401 10 "-" "ua" ` + "\r\n\n" +
		`1.1.1.1 - - [10/Oct/2025:13:55:40 +0000] "POST /login HTTP/1.1" 401 10 "-" "ua"`

	for _, ev := range []model.Evidence{
		model.SingleEvidence(chunk),
		model.EvidenceList([]string{chunk}),
	} {
		assert.False(t, EvidenceIsInformative(ev, chunk))

		_, got := Enrich("n/a", ev, chunk)
		require.False(t, got.IsAbsent())
		assert.NotContains(t, got.Items(), chunk)
		assert.Equal(t, "2× POST /login → 401", got.Items()[0])
	}
}

func TestEnrich_KeepsInformativeHalves(t *testing.T) {
	note, ev := Enrich("Credential stuffing against /login", model.EvidenceList([]string{" a ", "", "b"}), loginChunk)

	assert.Equal(t, "Credential stuffing against /login", note)
	assert.Equal(t, []string{"a", "b"}, ev.Items())

	_, single := Enrich("x", model.SingleEvidence("POST /login 401 from one IP"), loginChunk)
	assert.True(t, single.IsSingle())
}

func TestEnrich_HalvesIndependent(t *testing.T) {
	note, ev := Enrich("Credential stuffing against /login", model.NoEvidence(), loginChunk)
	assert.Equal(t, "Credential stuffing against /login", note)
	assert.Len(t, ev.Items(), 4)

	note, ev = Enrich("n/a", model.SingleEvidence("the login POST failed"), loginChunk)
	assert.True(t, strings.HasPrefix(note, "Detected 2 error responses"))
	assert.Equal(t, []string{"the login POST failed"}, ev.Items())
}

func TestEnrich_UnparseableChunk(t *testing.T) {
	note, ev := Enrich("", model.SingleEvidence("garbage"), "garbage")

	assert.Equal(t, NoNote, note)
	assert.True(t, ev.IsAbsent())
}

func TestAnalyze_RepeatedPaths(t *testing.T) {
	var lines []string
	add := func(n int, req string, status int) {
		for i := 0; i < n; i++ {
			lines = append(lines, `10.0.0.1 - - [01/Jan/2025:00:00:00 +0000] "`+req+` HTTP/1.1" `+strconv.Itoa(status)+` 10 "-" "ua"`)
		}
	}
	add(4, "GET /a", 200)
	add(1, "HEAD /a", 200)
	add(3, "GET /b", 200)
	add(3, "GET /c", 200)
	add(3, "GET /d", 200)

	f := Analyze(strings.Join(lines, "\n"))

	require.Len(t, f.Notes, 1)
	assert.Equal(t, "Repeated access patterns: 5× /a via GET, HEAD; 3× /b via GET; 3× /c via GET.", f.Notes[0])
	assert.Equal(t, []string{"5× /a via GET, HEAD", "3× /b via GET", "3× /c via GET"}, f.Evidence)
}

func TestAnalyze_WriteBreakdown(t *testing.T) {
	chunk := strings.Join([]string{
		`1.1.1.1 - - [01/Jan/2025:00:00:00 +0000] "POST /upload HTTP/1.1" 201 10 "-" "ua"`,
		`1.1.1.1 - - [01/Jan/2025:00:00:01 +0000] "POST /upload HTTP/1.1" 201 10 "-" "ua"`,
		`1.1.1.1 - - [01/Jan/2025:00:00:02 +0000] "POST /upload HTTP/1.1" 200 10 "-" "ua"`,
		`1.1.1.1 - - [01/Jan/2025:00:00:03 +0000] "DELETE /item/7 HTTP/1.1" 204 0 "-" "ua"`,
	}, "\n")

	f := Analyze(chunk)

	assert.Equal(t, []string{
		"Repeated access patterns: 3× /upload via POST.",
		"Write operations observed: 3× POST /upload (201×2, 200×1); 1× DELETE /item/7 (204×1).",
	}, f.Notes)
}

func TestAnalyze_Routine(t *testing.T) {
	chunk := strings.Join([]string{
		`1.1.1.1 - - [01/Jan/2025:00:00:00 +0000] "GET / HTTP/1.1" 200 10 "-" "ua"`,
		`1.1.1.1 - - [01/Jan/2025:00:00:01 +0000] "GET /about HTTP/1.1" 304 0 "-" "ua"`,
		`1.1.1.1 - - [01/Jan/2025:00:00:02 +0000] "GET /about HTTP/1.1" 304 0 "-" "ua"`,
	}, "\n")

	f := Analyze(chunk)

	assert.Equal(t, []string{"Routine activity detected: 3 requests across 2 paths, primarily GET with status 304."}, f.Notes)
	assert.Empty(t, f.Evidence)

	f = Analyze(`1.1.1.1 - - [01/Jan/2025:00:00:00 +0000] "GET / HTTP/1.1" 200 10 "-" "ua"`)
	assert.Equal(t, []string{"Routine activity detected: 1 request across 1 path, primarily GET with status 200."}, f.Notes)
}

func TestAnalyze_TopThreeErrors(t *testing.T) {
	var lines []string
	for i, path := range []string{"/a", "/b", "/b", "/c", "/d", "/d", "/d"} {
		lines = append(lines, `1.1.1.1 - - [01/Jan/2025:00:00:0`+strconv.Itoa(i)+` +0000] "GET `+path+` HTTP/1.1" 404 0 "-" "ua"`)
	}

	f := Analyze(strings.Join(lines, "\n"))

	require.NotEmpty(t, f.Notes)
	assert.Equal(t, "Detected 7 error responses (3× GET /d → 404; 2× GET /b → 404; 1× GET /a → 404).", f.Notes[0])
}
