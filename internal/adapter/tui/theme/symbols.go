package theme

import (
	"os"
	"strings"
)

// SymbolSet holds all UI symbols, allowing runtime switching between
// Unicode and ASCII fallback sets.
type SymbolSet struct {
	Success  string
	Error    string
	Warning  string
	Info     string
	Spinner  string
	ArrowR   string
	Bullet   string
	Ellipsis string
	Gear     string
	Thought  string
	Pending  string
	Active   string
	Tool     string
	User     string
	Bot      string
}

var unicodeSymbols = SymbolSet{
	Success:  "✓", // ✓
	Error:    "✗", // ✗
	Warning:  "⚠", // ⚠
	Info:     "●", // ●
	Spinner:  "⏳", // ⏳
	ArrowR:   "→", // →
	Bullet:   "•", // •
	Ellipsis: "…", // …
	Gear:     "⚙️ ",
	Thought:  "…", // …
	Pending:  "○", // ○
	Active:   "◐", // ◐
	Tool:     "⚒", // ⚒
	User:     "You",
	Bot:      "DocNexus",
}

var asciiSymbols = SymbolSet{
	Success:  "[OK]",
	Error:    "[ERR]",
	Warning:  "[!]",
	Info:     "[i]",
	Spinner:  "[...]",
	ArrowR:   "->",
	Bullet:   "*",
	Ellipsis: "...",
	Gear:     "[step] ",
	Thought:  "~",
	Pending:  "[ ]",
	Active:   "[~]",
	Tool:     "[tool]",
	User:     "You",
	Bot:      "DocNexus",
}

// DetectUnicodeSupport checks whether the terminal likely supports Unicode.
// DOCNEXUS_ASCII_SYMBOLS=1 forces ASCII; otherwise Unicode is assumed, as
// every terminal the client targets renders it.
func DetectUnicodeSupport() bool {
	if v := os.Getenv("DOCNEXUS_ASCII_SYMBOLS"); v == "1" || strings.EqualFold(v, "true") {
		return false
	}
	if strings.EqualFold(os.Getenv("TERM"), "linux") {
		// The Linux console font lacks most of the glyphs above.
		return false
	}
	return true
}

// InitSymbols sets the package-level Symbol* variables based on terminal
// capabilities. Called automatically by init(), but can be called again
// if the environment changes (e.g., in tests).
func InitSymbols() {
	UseASCII(!DetectUnicodeSupport())
}

// UseASCII switches between the ASCII and Unicode symbol sets. The config
// file's ui.ascii_symbols lands here.
func UseASCII(ascii bool) {
	set := unicodeSymbols
	if ascii {
		set = asciiSymbols
	}
	apply(set)
}

func apply(set SymbolSet) {
	SymbolSuccess = set.Success
	SymbolError = set.Error
	SymbolWarning = set.Warning
	SymbolInfo = set.Info
	SymbolSpinner = set.Spinner
	SymbolArrowR = set.ArrowR
	SymbolBullet = set.Bullet
	SymbolEllipsis = set.Ellipsis
	SymbolGear = set.Gear
	SymbolThought = set.Thought
	SymbolPending = set.Pending
	SymbolActive = set.Active
	SymbolTool = set.Tool
	SymbolUser = set.User
	SymbolBot = set.Bot
}

func init() {
	InitSymbols()
}
