package diagnosis

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"
)

func TestNormalizeParsesEmbeddedObject(t *testing.T) {
	raw := `Sure! Here is my assessment of the photo:
{"diagnosis":"leaf rust","advice":"apply fungicide","severity":"high","confidence":0.9}
Let me know if you need anything else.`

	res, fellBack := Normalize(raw)
	require.False(t, fellBack)
	require.Equal(t, Result{
		Diagnosis:  "leaf rust",
		Advice:     "apply fungicide",
		Severity:   SeverityHigh,
		Confidence: 0.9,
	}, res)
}

func TestNormalizeHandlesNestedBracesInStrings(t *testing.T) {
	raw := `{"diagnosis":"powdery mildew {early stage}","advice":"prune affected leaves \"carefully\"","severity":"low","confidence":0.7} trailing prose`

	res, fellBack := Normalize(raw)
	require.False(t, fellBack)
	require.Equal(t, "powdery mildew {early stage}", res.Diagnosis)
	require.Equal(t, SeverityLow, res.Severity)
}

func TestNormalizeFallbackOnProse(t *testing.T) {
	raw := strings.Repeat("I see some yellowing on the leaves which may indicate a nutrient deficiency. ", 4)
	require.Greater(t, len(raw), 200)

	res, fellBack := Normalize(raw)
	require.True(t, fellBack)
	require.Equal(t, raw[:200]+"...", res.Diagnosis)
	require.Equal(t, FallbackAdvice, res.Advice)
	require.Equal(t, SeverityMedium, res.Severity)
	require.Equal(t, FallbackConfidence, res.Confidence)
}

func TestNormalizeRejectsOutOfRangeFields(t *testing.T) {
	cases := map[string]string{
		"bad severity":      `{"diagnosis":"blight","advice":"spray","severity":"critical","confidence":0.9}`,
		"confidence above":  `{"diagnosis":"blight","advice":"spray","severity":"high","confidence":1.5}`,
		"confidence below":  `{"diagnosis":"blight","advice":"spray","severity":"high","confidence":-0.1}`,
		"empty diagnosis":   `{"diagnosis":"","advice":"spray","severity":"high","confidence":0.9}`,
		"empty advice":      `{"diagnosis":"blight","advice":" ","severity":"high","confidence":0.9}`,
		"wrong value types": `{"diagnosis":"blight","advice":"spray","severity":"high","confidence":"very"}`,
	}
	for name, raw := range cases {
		res, fellBack := Normalize(raw)
		require.True(t, fellBack, name)
		require.Equal(t, SeverityMedium, res.Severity, name)
		require.Equal(t, FallbackConfidence, res.Confidence, name)
	}
}

func TestNormalizeFallbackKeepsMultibyteRunesIntact(t *testing.T) {
	// a multibyte rune straddling the excerpt boundary must not be split
	raw := strings.Repeat("a", 199) + "é" + strings.Repeat("…", 30)

	res, fellBack := Normalize(raw)
	require.True(t, fellBack)
	require.True(t, utf8.ValidString(res.Diagnosis))
	require.Equal(t, strings.Repeat("a", 199)+"é...", res.Diagnosis)
	require.Equal(t, 200+3, utf8.RuneCountInString(res.Diagnosis))
}

func TestNormalizeFallbackOnUnbalancedBraces(t *testing.T) {
	res, fellBack := Normalize(`{"diagnosis":"cut off mid`)
	require.True(t, fellBack)
	require.Equal(t, FallbackAdvice, res.Advice)
}

func TestNormalizeShortProseKeepsWholeText(t *testing.T) {
	res, fellBack := Normalize("healthy plant")
	require.True(t, fellBack)
	require.Equal(t, "healthy plant...", res.Diagnosis)
}

func TestSeverityValid(t *testing.T) {
	require.True(t, SeverityLow.Valid())
	require.True(t, SeverityMedium.Valid())
	require.True(t, SeverityHigh.Valid())
	require.False(t, Severity("critical").Valid())
	require.False(t, Severity("").Valid())
}
