package facts

import (
	"bufio"
	"fmt"
	"strings"
)

// Fact represents a basic assertion
type Fact struct {
	Relation string
	Subject  string
	Object   string
}

func (f Fact) String() string {
	return fmt.Sprintf("%s(%s, %s)", f.Relation, f.Subject, f.Object)
}

// Engine is a minimal triple store in pure Go.
// Subjects and objects keep insertion order so readers see a stable catalog order.
type Engine struct {
	facts    map[string]map[string][]string // relation → subject → [objects]
	subjects []string
	seen     map[string]bool
}

// New creates an empty fact base
func New() *Engine {
	return &Engine{
		facts: make(map[string]map[string][]string),
		seen:  make(map[string]bool),
	}
}

// Load parses facts from text and adds them to the fact base.
// Format:
//
//	type(Flight1, flight)
//	price(Flight1, 6500).   % trailing period and comments are allowed
//	# comments
func (e *Engine) Load(text string) error {
	scanner := bufio.NewScanner(strings.NewReader(text))
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := stripComment(scanner.Text())

		if line == "" {
			continue
		}

		fact, err := ParseFact(line)
		if err != nil {
			return fmt.Errorf("line %d: %w", lineNum, err)
		}

		e.AddFact(fact.Relation, fact.Subject, fact.Object)
	}

	return scanner.Err()
}

// AddFact adds a fact to the fact base
func (e *Engine) AddFact(relation, subject, object string) {
	if e.facts[relation] == nil {
		e.facts[relation] = make(map[string][]string)
	}

	// Avoid duplicates
	for _, obj := range e.facts[relation][subject] {
		if obj == object {
			return
		}
	}

	e.facts[relation][subject] = append(e.facts[relation][subject], object)
	if !e.seen[subject] {
		e.seen[subject] = true
		e.subjects = append(e.subjects, subject)
	}
}

// Query checks if a fact is known
func (e *Engine) Query(relation, subject, object string) bool {
	for _, obj := range e.facts[relation][subject] {
		if obj == object {
			return true
		}
	}
	return false
}

// Objects returns the objects related to subject via relation, in insertion order
func (e *Engine) Objects(relation, subject string) []string {
	objs := e.facts[relation][subject]
	out := make([]string, len(objs))
	copy(out, objs)
	return out
}

// First returns the first object for relation and subject
func (e *Engine) First(relation, subject string) (string, bool) {
	objs := e.facts[relation][subject]
	if len(objs) == 0 {
		return "", false
	}
	return objs[0], true
}

// Subjects returns every subject with relation(subject, object), in insertion order
func (e *Engine) Subjects(relation, object string) []string {
	var out []string
	for _, subj := range e.subjects {
		if e.Query(relation, subj, object) {
			out = append(out, subj)
		}
	}
	return out
}

// Len returns the number of distinct facts
func (e *Engine) Len() int {
	n := 0
	for _, bySubject := range e.facts {
		for _, objs := range bySubject {
			n += len(objs)
		}
	}
	return n
}

// ParseFact parses "relation(subject, object)" format
func ParseFact(line string) (Fact, error) {
	line = strings.TrimSuffix(strings.TrimSpace(line), ".")

	openParen := strings.Index(line, "(")
	if openParen == -1 {
		return Fact{}, fmt.Errorf("missing '(': %s", line)
	}

	relation := strings.TrimSpace(line[:openParen])
	if relation == "" {
		return Fact{}, fmt.Errorf("missing relation: %s", line)
	}

	closeParen := strings.LastIndex(line, ")")
	if closeParen == -1 || closeParen < openParen {
		return Fact{}, fmt.Errorf("missing ')': %s", line)
	}

	args := line[openParen+1 : closeParen]
	parts := strings.Split(args, ",")
	if len(parts) != 2 {
		return Fact{}, fmt.Errorf("expected 2 arguments, got %d: %s", len(parts), line)
	}

	subject := unquote(parts[0])
	object := unquote(parts[1])
	if subject == "" || object == "" {
		return Fact{}, fmt.Errorf("empty argument: %s", line)
	}

	return Fact{
		Relation: relation,
		Subject:  subject,
		Object:   object,
	}, nil
}

func stripComment(line string) string {
	line = strings.TrimSpace(line)
	if strings.HasPrefix(line, "#") {
		return ""
	}
	if i := strings.Index(line, "%"); i >= 0 {
		line = strings.TrimSpace(line[:i])
	}
	return line
}

func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}
