package resources

import (
	"time"

	"github.com/Borislavv/go-ash-mirror/schema"
)

type EmbedType string

const (
	EmbedRich    EmbedType = "rich"
	EmbedImage   EmbedType = "image"
	EmbedVideo   EmbedType = "video"
	EmbedGIFV    EmbedType = "gifv"
	EmbedArticle EmbedType = "article"
	EmbedLink    EmbedType = "link"
)

// Embed is a rich message attachment. It is a plain value: embeds are never cached.
type Embed struct {
	Title       schema.Value[string]
	Type        schema.Value[EmbedType]
	Description schema.Value[string]
	URL         schema.Value[string]
	Timestamp   schema.Value[time.Time]
	Color       schema.Value[int]
	Footer      schema.Value[*EmbedFooter]
	Image       schema.Value[*EmbedMedia]
	Thumbnail   schema.Value[*EmbedMedia]
	Video       schema.Value[*EmbedMedia]
	Provider    schema.Value[*EmbedProvider]
	Author      schema.Value[*EmbedAuthor]
	Fields      schema.Value[[]*EmbedField]
}

type EmbedFooter struct {
	Text         schema.Value[string]
	IconURL      schema.Value[string]
	ProxyIconURL schema.Value[string]
}

// EmbedMedia is shared by images, thumbnails and videos.
type EmbedMedia struct {
	URL      schema.Value[string]
	ProxyURL schema.Value[string]
	Height   schema.Value[int]
	Width    schema.Value[int]
}

type EmbedProvider struct {
	Name schema.Value[string]
	URL  schema.Value[string]
}

type EmbedAuthor struct {
	Name         schema.Value[string]
	URL          schema.Value[string]
	IconURL      schema.Value[string]
	ProxyIconURL schema.Value[string]
}

type EmbedField struct {
	Name   schema.Value[string]
	Value  schema.Value[string]
	Inline schema.Value[bool]
}

var (
	EmbedFooterSchema = schema.MustBuild("EmbedFooter", func() *EmbedFooter { return &EmbedFooter{} }, nil,
		schema.F("text", "text", func(f *EmbedFooter) *schema.Value[string] { return &f.Text }, schema.String),
		schema.F("icon_url", "icon_url", func(f *EmbedFooter) *schema.Value[string] { return &f.IconURL }, schema.String),
		schema.F("proxy_icon_url", "proxy_icon_url", func(f *EmbedFooter) *schema.Value[string] { return &f.ProxyIconURL }, schema.String),
	)

	EmbedMediaSchema = schema.MustBuild("EmbedMedia", func() *EmbedMedia { return &EmbedMedia{} }, nil,
		schema.F("url", "url", func(m *EmbedMedia) *schema.Value[string] { return &m.URL }, schema.String),
		schema.F("proxy_url", "proxy_url", func(m *EmbedMedia) *schema.Value[string] { return &m.ProxyURL }, schema.String),
		schema.F("height", "height", func(m *EmbedMedia) *schema.Value[int] { return &m.Height }, schema.Int),
		schema.F("width", "width", func(m *EmbedMedia) *schema.Value[int] { return &m.Width }, schema.Int),
	)

	EmbedProviderSchema = schema.MustBuild("EmbedProvider", func() *EmbedProvider { return &EmbedProvider{} }, nil,
		schema.F("name", "name", func(p *EmbedProvider) *schema.Value[string] { return &p.Name }, schema.String),
		schema.F("url", "url", func(p *EmbedProvider) *schema.Value[string] { return &p.URL }, schema.String),
	)

	EmbedAuthorSchema = schema.MustBuild("EmbedAuthor", func() *EmbedAuthor { return &EmbedAuthor{} }, nil,
		schema.F("name", "name", func(a *EmbedAuthor) *schema.Value[string] { return &a.Name }, schema.String),
		schema.F("url", "url", func(a *EmbedAuthor) *schema.Value[string] { return &a.URL }, schema.String),
		schema.F("icon_url", "icon_url", func(a *EmbedAuthor) *schema.Value[string] { return &a.IconURL }, schema.String),
		schema.F("proxy_icon_url", "proxy_icon_url", func(a *EmbedAuthor) *schema.Value[string] { return &a.ProxyIconURL }, schema.String),
	)

	EmbedFieldSchema = schema.MustBuild("EmbedField", func() *EmbedField { return &EmbedField{} }, nil,
		schema.F("name", "name", func(f *EmbedField) *schema.Value[string] { return &f.Name }, schema.String),
		schema.F("value", "value", func(f *EmbedField) *schema.Value[string] { return &f.Value }, schema.String),
		schema.F("inline", "inline", func(f *EmbedField) *schema.Value[bool] { return &f.Inline }, schema.Bool),
	)

	EmbedSchema = schema.MustBuild("Embed", NewEmbed, nil,
		schema.F("title", "title", func(e *Embed) *schema.Value[string] { return &e.Title }, schema.String),
		schema.F("type", "type", func(e *Embed) *schema.Value[EmbedType] { return &e.Type },
			schema.StringEnum("embed_type", EmbedRich, EmbedImage, EmbedVideo, EmbedGIFV, EmbedArticle, EmbedLink),
			schema.Default(EmbedRich)),
		schema.F("description", "description", func(e *Embed) *schema.Value[string] { return &e.Description }, schema.String),
		schema.F("url", "url", func(e *Embed) *schema.Value[string] { return &e.URL }, schema.String),
		schema.F("timestamp", "timestamp", func(e *Embed) *schema.Value[time.Time] { return &e.Timestamp }, schema.Time),
		schema.F("color", "color", func(e *Embed) *schema.Value[int] { return &e.Color }, schema.Int),
		schema.F("footer", "footer", func(e *Embed) *schema.Value[*EmbedFooter] { return &e.Footer }, schema.Object(EmbedFooterSchema)),
		schema.F("image", "image", func(e *Embed) *schema.Value[*EmbedMedia] { return &e.Image }, schema.Object(EmbedMediaSchema)),
		schema.F("thumbnail", "thumbnail", func(e *Embed) *schema.Value[*EmbedMedia] { return &e.Thumbnail }, schema.Object(EmbedMediaSchema)),
		schema.F("video", "video", func(e *Embed) *schema.Value[*EmbedMedia] { return &e.Video }, schema.Object(EmbedMediaSchema)),
		schema.F("provider", "provider", func(e *Embed) *schema.Value[*EmbedProvider] { return &e.Provider }, schema.Object(EmbedProviderSchema)),
		schema.F("author", "author", func(e *Embed) *schema.Value[*EmbedAuthor] { return &e.Author }, schema.Object(EmbedAuthorSchema)),
		schema.F("fields", "fields", func(e *Embed) *schema.Value[[]*EmbedField] { return &e.Fields }, schema.Array(schema.Object(EmbedFieldSchema))),
	)
)

func NewEmbed() *Embed {
	return &Embed{}
}

// ParseEmbed decodes an embed record. A missing type defaults to rich.
func ParseEmbed(rec schema.Record) (*Embed, error) {
	return EmbedSchema.Unmarshal(rec, nil)
}

// Record encodes the embed for a request body.
func (e *Embed) Record() (schema.Record, error) {
	return EmbedSchema.Marshal(e)
}

// AddField appends a field and returns the embed for chaining.
func (e *Embed) AddField(name, value string, inline bool) *Embed {
	f := &EmbedField{}
	f.Name.Set(name)
	f.Value.Set(value)
	f.Inline.Set(inline)
	e.Fields.Set(append(e.Fields.Or(nil), f))
	return e
}
