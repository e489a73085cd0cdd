package domain

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImageKeyFitMatchForm(t *testing.T) {
	orig := "UTestKey"
	pattern := regexp.MustCompile(`^UTestKey_\d+x\d+$`)

	tests := []struct {
		name string
		opts TransformOptions
		want string
	}{
		{name: "both set", opts: TransformOptions{Width: 100, Height: 200, Mode: ModeFit, Format: FormatMatch}, want: "UTestKey_100x200"},
		{name: "unset dimensions", opts: TransformOptions{Mode: ModeFit, Format: FormatMatch}, want: "UTestKey_0x0"},
		{name: "width only", opts: TransformOptions{Width: 640, Mode: ModeFit, Format: FormatMatch}, want: "UTestKey_640x0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ImageKey(orig, tt.opts)
			assert.Equal(t, tt.want, got)
			assert.Regexp(t, pattern, got)
		})
	}
}

func TestImageKeyLongForm(t *testing.T) {
	orig := "UTestKey"
	pattern := regexp.MustCompile(`^UTestKey_(Cover|Fit)_(Match|JPEG|PNG|WEBP|AVIF)(_\d+){0,2}$`)

	tests := []struct {
		name string
		opts TransformOptions
		want string
	}{
		{name: "cover webp both dims", opts: TransformOptions{Width: 128, Height: 128, Mode: ModeCover, Format: FormatWEBP}, want: "UTestKey_Cover_WEBP_128_128"},
		{name: "fit avif no dims", opts: TransformOptions{Mode: ModeFit, Format: FormatAVIF}, want: "UTestKey_Fit_AVIF"},
		{name: "cover match", opts: TransformOptions{Width: 64, Height: 64, Mode: ModeCover, Format: FormatMatch}, want: "UTestKey_Cover_Match_64_64"},
		{name: "fit jpeg height only", opts: TransformOptions{Height: 500, Mode: ModeFit, Format: FormatJPEG}, want: "UTestKey_Fit_JPEG_500"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ImageKey(orig, tt.opts)
			assert.Equal(t, tt.want, got)
			assert.Regexp(t, pattern, got)
		})
	}
}

func TestParseScalingMode(t *testing.T) {
	mode, err := ParseScalingMode("cover")
	require.NoError(t, err)
	assert.Equal(t, ModeCover, mode)

	mode, err = ParseScalingMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeFit, mode)

	_, err = ParseScalingMode("stretch")
	assert.Error(t, err)
}

func TestParseOutputFormat(t *testing.T) {
	tests := []struct {
		input string
		want  OutputFormat
	}{
		{input: "", want: FormatMatch},
		{input: "match", want: FormatMatch},
		{input: "jpeg", want: FormatJPEG},
		{input: "jpg", want: FormatJPEG},
		{input: "PNG", want: FormatPNG},
		{input: "webp", want: FormatWEBP},
		{input: "avif", want: FormatAVIF},
	}
	for _, tt := range tests {
		format, err := ParseOutputFormat(tt.input)
		require.NoError(t, err, tt.input)
		assert.Equal(t, tt.want, format, tt.input)
	}

	_, err := ParseOutputFormat("tiff")
	assert.Error(t, err)
}
