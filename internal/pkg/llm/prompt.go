package llm

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed prompts.yaml
var promptsYAML []byte

const (
	SegmentInstruction = "instruction"
	SegmentContent     = "content"
)

const (
	StyleRoleplay     = "roleplay"
	StyleProfessional = "professional"
)

// Segment 提示词片段
type Segment struct {
	Kind string
	Text string
}

// Prompt 与供应商无关的提示词
type Prompt struct {
	Segments []Segment
}

// Instructions 合并所有 instruction 片段
func (p *Prompt) Instructions() string {
	return p.join(SegmentInstruction)
}

// Contents 合并所有 content 片段
func (p *Prompt) Contents() string {
	return p.join(SegmentContent)
}

func (p *Prompt) join(kind string) string {
	parts := make([]string, 0, len(p.Segments))
	for _, s := range p.Segments {
		if s.Kind == kind {
			parts = append(parts, s.Text)
		}
	}
	return strings.Join(parts, "\n\n")
}

// Persona 角色设定, 可选特质为空表示未设置
type Persona struct {
	Name            string
	Gender          string
	Personality     string
	Opening         string
	MBTI            string
	Enneagram       string
	AttachmentStyle string
	Zodiac          string
}

// HistoryMessage 历史消息
type HistoryMessage struct {
	Sender  string
	Content string
}

type promptTemplates struct {
	Identity    string            `yaml:"identity"`
	Personality string            `yaml:"personality"`
	Styles      map[string]string `yaml:"styles"`
	Traits      struct {
		MBTI            string `yaml:"mbti"`
		Enneagram       string `yaml:"enneagram"`
		AttachmentStyle string `yaml:"attachment_style"`
		Zodiac          string `yaml:"zodiac"`
	} `yaml:"traits"`
	Boundary   string `yaml:"boundary"`
	Length     string `yaml:"length"`
	Opening    string `yaml:"opening"`
	History    string `yaml:"history"`
	Moderation struct {
		Text  string `yaml:"text"`
		Image string `yaml:"image"`
	} `yaml:"moderation"`
}

// Composer 组装角色对话提示词, 相同输入输出相同
type Composer struct {
	tpl promptTemplates
}

// NewComposer 从内嵌模板构建
func NewComposer() (*Composer, error) {
	tpl, err := loadTemplates()
	if err != nil {
		return nil, err
	}
	return &Composer{tpl: tpl}, nil
}

func loadTemplates() (promptTemplates, error) {
	var tpl promptTemplates
	if err := yaml.Unmarshal(promptsYAML, &tpl); err != nil {
		return tpl, fmt.Errorf("failed to parse prompt templates: %w", err)
	}
	for _, style := range []string{StyleRoleplay, StyleProfessional} {
		if tpl.Styles[style] == "" {
			return tpl, fmt.Errorf("missing prompt template for style %s", style)
		}
	}
	return tpl, nil
}

// IsValidStyle 只支持 roleplay 与 professional
func IsValidStyle(style string) bool {
	return style == StyleRoleplay || style == StyleProfessional
}

// Compose 历史非空时替代开场白, 两者只出现其一
func (c *Composer) Compose(persona Persona, style string, history []HistoryMessage, userText string) (*Prompt, error) {
	styleTpl, ok := c.tpl.Styles[style]
	if !ok {
		return nil, fmt.Errorf("unknown response style: %s", style)
	}

	r := strings.NewReplacer(
		"{name}", persona.Name,
		"{gender}", persona.Gender,
		"{personality}", persona.Personality,
		"{opening}", persona.Opening,
	)

	p := &Prompt{}
	p.instruction(r.Replace(c.tpl.Identity))
	p.instruction(r.Replace(c.tpl.Personality))
	p.instruction(r.Replace(styleTpl))

	traits := []struct {
		tpl   string
		value string
	}{
		{c.tpl.Traits.MBTI, persona.MBTI},
		{c.tpl.Traits.Enneagram, persona.Enneagram},
		{c.tpl.Traits.AttachmentStyle, persona.AttachmentStyle},
		{c.tpl.Traits.Zodiac, persona.Zodiac},
	}
	for _, t := range traits {
		if strings.TrimSpace(t.value) == "" {
			continue
		}
		p.instruction(strings.ReplaceAll(t.tpl, "{value}", t.value))
	}

	p.instruction(c.tpl.Boundary)
	p.instruction(c.tpl.Length)

	if len(history) > 0 {
		var b strings.Builder
		b.WriteString(c.tpl.History)
		for _, m := range history {
			speaker := "User"
			if m.Sender != "user" {
				speaker = persona.Name
			}
			b.WriteString("\n")
			b.WriteString(speaker)
			b.WriteString(": ")
			b.WriteString(m.Content)
		}
		p.content(b.String())
	} else {
		p.content(r.Replace(c.tpl.Opening))
	}

	p.content(userText)
	return p, nil
}

func (p *Prompt) instruction(text string) {
	p.Segments = append(p.Segments, Segment{Kind: SegmentInstruction, Text: text})
}

func (p *Prompt) content(text string) {
	p.Segments = append(p.Segments, Segment{Kind: SegmentContent, Text: text})
}
