package main

import (
	"fmt"
	"io"
	"strconv"
	"sync"

	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"
	"groupchat/internal/chat"
	"groupchat/internal/model"
)

var (
	colorError  = color.New(color.FgRed)
	colorOK     = color.New(color.FgGreen)
	colorAuthor = color.New(color.FgCyan, color.OpBold)
	colorMuted  = color.New(color.FgGray)
)

func paint(style color.Style, s string) string {
	if noColorFlag {
		return s
	}
	return style.Render(s)
}

const timeLayout = "2006-01-02 15:04"

func formatMessage(m model.Message) string {
	return fmt.Sprintf("%s %s: %s",
		paint(colorMuted, m.CreatedAt.Local().Format(timeLayout)),
		paint(colorAuthor, m.Author()),
		m.Content,
	)
}

func renderTable(w io.Writer, msgs []model.Message) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"ID", "Time", "Author", "Message"})
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetTablePadding("\t")
	for _, m := range msgs {
		table.Append([]string{
			strconv.FormatInt(m.ID, 10),
			m.CreatedAt.Local().Format(timeLayout),
			m.Author(),
			m.Content,
		})
	}
	table.Render()
}

// feedPrinter turns synchronizer state changes into an append-only
// terminal feed: each message is printed once, notices only when they
// change.
type feedPrinter struct {
	w io.Writer

	mu     sync.Mutex
	lastID int64
	notice string
}

func (p *feedPrinter) print(st chat.State) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !st.Active {
		return
	}

	var notice string
	switch {
	case st.Loading:
		notice = paint(colorMuted, chat.LoadingText)
	case st.LoadError != "":
		notice = paint(colorError, st.LoadError)
	case st.SendError != "":
		notice = paint(colorError, st.SendError)
	case st.Empty():
		notice = paint(colorMuted, chat.EmptyText)
	}
	if notice != "" && notice != p.notice {
		fmt.Fprintln(p.w, notice)
	}
	p.notice = notice

	for _, m := range st.Messages {
		if m.ID <= p.lastID {
			continue
		}
		fmt.Fprintln(p.w, formatMessage(m))
		p.lastID = m.ID
	}
}
