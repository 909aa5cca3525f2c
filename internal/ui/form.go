package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

type field struct {
	name   string
	label  string
	secret bool
}

var (
	loginFields = []field{
		{name: "username", label: "Username"},
		{name: "password", label: "Password", secret: true},
	}
	registerFields = []field{
		{name: "first_name", label: "First name"},
		{name: "last_name", label: "Last name"},
		{name: "username", label: "Username"},
		{name: "password", label: "Password", secret: true},
		{name: "confirm_password", label: "Confirm password", secret: true},
	}
	titleFields = []field{{name: "title", label: "Title"}}
)

// form is a column of text inputs with one focused at a time.
type form struct {
	fields []field
	inputs []textinput.Model
	focus  int
}

func newForm(fields []field) form {
	f := form{fields: fields, inputs: make([]textinput.Model, len(fields))}
	for i, fl := range fields {
		in := textinput.New()
		in.Prompt = ""
		in.Placeholder = strings.ToLower(fl.label)
		in.CharLimit = 128
		in.Cursor.SetMode(cursor.CursorStatic)
		if fl.secret {
			in.EchoMode = textinput.EchoPassword
			in.EchoCharacter = '•'
		}
		f.inputs[i] = in
	}
	f.setFocus(0)
	return f
}

func (f *form) setFocus(i int) {
	n := len(f.inputs)
	f.focus = ((i % n) + n) % n
	for j := range f.inputs {
		if j == f.focus {
			f.inputs[j].Focus()
		} else {
			f.inputs[j].Blur()
		}
	}
}

func (f *form) next() { f.setFocus(f.focus + 1) }
func (f *form) prev() { f.setFocus(f.focus - 1) }

// last reports whether the focused input is the final one.
func (f *form) last() bool { return f.focus == len(f.inputs)-1 }

func (f *form) value(name string) string {
	for i, fl := range f.fields {
		if fl.name == name {
			return f.inputs[i].Value()
		}
	}
	return ""
}

func (f *form) update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	return cmd
}

func (f *form) view() string {
	var b strings.Builder
	for i, fl := range f.fields {
		b.WriteString(styles.label.Render(fl.label))
		b.WriteString(f.inputs[i].View())
		b.WriteString("\n")
	}
	return b.String()
}
