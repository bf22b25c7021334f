package notify

import "fmt"

const (
	colorSuccess = "#36a64f"
	colorFailure = "#de4a4b"

	headerSuccess = "✅ DBT Pipeline Success"
	headerFailure = "❌ DBT Pipeline Failed"

	dateLayout = "2006-01-02 15:04"
)

// Message is a Slack incoming-webhook body.
type Message struct {
	Attachments []Attachment `json:"attachments"`
}

type Attachment struct {
	Color  string  `json:"color"`
	Blocks []Block `json:"blocks"`
}

// Block is a Slack layout block. Only the fields used by the header,
// section and actions blocks are modelled.
type Block struct {
	Type     string    `json:"type"`
	Text     *Text     `json:"text,omitempty"`
	Fields   []Text    `json:"fields,omitempty"`
	Elements []Element `json:"elements,omitempty"`
}

type Text struct {
	Type  string `json:"type"`
	Text  string `json:"text"`
	Emoji bool   `json:"emoji,omitempty"`
}

type Element struct {
	Type  string `json:"type"`
	Text  Text   `json:"text"`
	URL   string `json:"url,omitempty"`
	Style string `json:"style,omitempty"`
}

// Color returns the attachment colour, which tells success from failure.
func (m Message) Color() string {
	if len(m.Attachments) == 0 {
		return ""
	}
	return m.Attachments[0].Color
}

// Header returns the header text of the first attachment.
func (m Message) Header() string {
	if len(m.Attachments) == 0 {
		return ""
	}
	for _, b := range m.Attachments[0].Blocks {
		if b.Type == "header" && b.Text != nil {
			return b.Text.Text
		}
	}
	return ""
}

// BuildMessage lays out p the way the team channel expects it.
func BuildMessage(p Payload) Message {
	date := p.LogicalDate.Format(dateLayout)
	if p.Succeeded {
		return Message{Attachments: []Attachment{{
			Color: colorSuccess,
			Blocks: []Block{
				header(headerSuccess),
				{Type: "section", Fields: []Text{
					field("DAG", p.PipelineID),
					field("Run ID", p.RunID),
					field("Date", date),
					field("Duration", fmt.Sprintf("%.2fs", p.Duration.Seconds())),
				}},
			},
		}}}
	}

	detail := p.Detail
	if detail == "" {
		detail = "Unknown error"
	}
	blocks := []Block{
		header(headerFailure),
		{Type: "section", Fields: []Text{
			field("Task", p.TaskID),
			field("Date", date),
			field("Run ID", p.RunID),
		}},
		{Type: "section", Text: &Text{Type: "mrkdwn", Text: "*Error:*\n```" + detail + "```"}},
	}
	if p.LogsURL != "" {
		blocks = append(blocks, Block{Type: "actions", Elements: []Element{{
			Type:  "button",
			Text:  Text{Type: "plain_text", Text: "View Logs"},
			URL:   p.LogsURL,
			Style: "danger",
		}}})
	}
	return Message{Attachments: []Attachment{{Color: colorFailure, Blocks: blocks}}}
}

func header(text string) Block {
	return Block{Type: "header", Text: &Text{Type: "plain_text", Text: text, Emoji: true}}
}

func field(name, value string) Text {
	return Text{Type: "mrkdwn", Text: "*" + name + ":*\n" + value}
}
