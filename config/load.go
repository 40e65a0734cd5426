package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/Skryldev/decodekit/format"
	"github.com/Skryldev/decodekit/pixel"
)

// ImageFile is the textual form of Image used in configuration files.
type ImageFile struct {
	Codecs                []string          `mapstructure:"codecs"`
	PixelFormat           string            `mapstructure:"pixel_format"`
	PixelBlend            string            `mapstructure:"pixel_blend"`
	BackgroundColor       uint32            `mapstructure:"background_color"`
	Report                []string          `mapstructure:"report"`
	Quirks                map[string]uint64 `mapstructure:"quirks"`
	MaxInclDimension      uint32            `mapstructure:"max_incl_dimension"`
	MaxInclMetadataLength uint64            `mapstructure:"max_incl_metadata_length"`
}

// JSONFile is the textual form of JSON used in configuration files.
type JSONFile struct {
	Quirks      map[string]uint64 `mapstructure:"quirks"`
	JSONPointer string            `mapstructure:"json_pointer"`
}

// Load reads a configuration file (any format viper understands) on top of
// Default().  Environment variables prefixed DECODEKIT_ override file values,
// e.g. DECODEKIT_CHUNK_SIZE.  An empty path loads defaults and environment
// only.
func Load(path string) (Config, error) {
	v := viper.New()
	def := Default()
	v.SetDefault("chunk_size", def.ChunkSize)
	v.SetDefault("max_source_bytes", def.MaxSourceBytes)
	v.SetDefault("worker_count", def.WorkerCount)
	v.SetDefault("log.level", def.Log.Level)
	v.SetDefault("log.format", def.Log.Format)
	v.SetDefault("log.outputs", def.Log.Outputs)
	v.SetDefault("log.rotation.filename", def.Log.Rotation.Filename)
	v.SetDefault("log.rotation.max_size_mb", def.Log.Rotation.MaxSizeMB)
	v.SetDefault("log.rotation.max_backups", def.Log.Rotation.MaxBackups)
	v.SetDefault("log.rotation.max_age_days", def.Log.Rotation.MaxAgeDays)
	v.SetDefault("image.pixel_format", def.Image.PixelFormat)
	v.SetDefault("image.pixel_blend", def.Image.PixelBlend)
	v.SetDefault("image.background_color", def.Image.BackgroundColor)

	v.SetEnvPrefix("DECODEKIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}
	if err := Validate(c); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Resolve converts the textual image settings into an Image configuration.
// Unset fields fall back to DefaultImage().
func (f ImageFile) Resolve() (Image, error) {
	img := DefaultImage()
	if len(f.Codecs) > 0 {
		img.EnabledCodecs = img.EnabledCodecs[:0]
		for _, name := range f.Codecs {
			cc, err := format.ParseCodec(name)
			if err != nil {
				return Image{}, err
			}
			img.EnabledCodecs = append(img.EnabledCodecs, cc)
		}
	}
	if f.PixelFormat != "" {
		pf, err := pixel.ParseFormat(f.PixelFormat)
		if err != nil {
			return Image{}, err
		}
		img.PixelFormat = pf
	}
	blend, err := pixel.ParseBlend(f.PixelBlend)
	if err != nil {
		return Image{}, err
	}
	img.PixelBlend = blend
	if f.BackgroundColor != 0 {
		img.BackgroundColor = f.BackgroundColor
	}
	for _, name := range f.Report {
		k, err := format.ParseMetadataKind(name)
		if err != nil {
			return Image{}, err
		}
		img.ReportMetadata = append(img.ReportMetadata, k)
	}
	if img.Quirks, err = parseQuirks(f.Quirks); err != nil {
		return Image{}, err
	}
	if f.MaxInclDimension != 0 {
		img.MaxInclDimension = f.MaxInclDimension
	}
	if f.MaxInclMetadataLength != 0 {
		img.MaxInclMetadataLength = f.MaxInclMetadataLength
	}
	return img, img.Validate()
}

// Resolve converts the textual JSON settings into a JSON configuration.
func (f JSONFile) Resolve() (JSON, error) {
	qs, err := parseQuirks(f.Quirks)
	if err != nil {
		return JSON{}, err
	}
	j := JSON{Quirks: qs, JSONPointer: f.JSONPointer}
	return j, j.Validate()
}

func parseQuirks(in map[string]uint64) (format.Quirks, error) {
	if len(in) == 0 {
		return nil, nil
	}
	out := make(format.Quirks, len(in))
	var errs []error
	for name, val := range in {
		q, err := format.ParseQuirk(name)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out[q] = val
	}
	return out, errors.Join(errs...)
}
