package document

import (
	"bytes"
	"io"
	"strings"

	"github.com/jhillyerd/enmime"

	"vehcat/internal"
)

// readEML reads the message body and then every attachment whose format is
// supported, in attachment order.
func readEML(r io.Reader, sk *skips) ([]Block, error) {
	env, err := enmime.ReadEnvelope(r)
	if err != nil {
		return nil, err
	}
	for _, e := range env.Errors {
		if e.Severe {
			sk.add("message", e)
		}
	}

	blocks := []Block{}
	if subject := strings.TrimSpace(env.GetHeader("Subject")); subject != "" {
		blocks = append(blocks, Paragraph(subject))
	}
	if env.HTML != "" {
		body, err := readHTML(strings.NewReader(env.HTML))
		if err != nil {
			sk.add("html body", err)
		}
		blocks = append(blocks, body...)
	} else if env.Text != "" {
		for _, line := range splitLines(env.Text) {
			blocks = append(blocks, Paragraph(line))
		}
	}

	for _, att := range env.Attachments {
		format, ok := FormatOf(att.FileName)
		if !ok || format == FormatEML {
			sk.add("attachment "+att.FileName, internal.ErrUnsupportedFormat)
			continue
		}
		var nested skips
		extra, err := readBlocks(format, bytes.NewReader(att.Content), int64(len(att.Content)), &nested)
		for _, s := range nested {
			*sk = append(*sk, "attachment "+att.FileName+": "+s)
		}
		if err != nil {
			sk.add("attachment "+att.FileName, err)
			continue
		}
		blocks = append(blocks, extra...)
	}
	return blocks, nil
}
