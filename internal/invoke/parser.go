package invoke

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/google/uuid"

	"agcodex/internal/agent"
	"agcodex/internal/logging"
	"agcodex/internal/types"
)

var (
	// ErrNoInvocation means the input contains no @agent token.
	ErrNoInvocation = errors.New("no agent invocation in input")
	// ErrUnknownAgent means a referenced name is not in the registry.
	ErrUnknownAgent = errors.New("unknown agent")
)

// Resolver checks invocation names against the agent registry. A nil
// resolver makes parsing purely syntactic.
type Resolver interface {
	Get(name string) (*agent.Descriptor, bool)
}

// Parser compiles user messages into invocation requests.
type Parser struct {
	resolver Resolver
}

// NewParser returns a parser. resolver may be nil.
func NewParser(resolver Resolver) *Parser {
	return &Parser{resolver: resolver}
}

// HasInvocation reports whether input contains an @agent token.
func HasInvocation(input string) bool {
	for i, r := range input {
		if r != '@' {
			continue
		}
		rest := input[i+1:]
		if rest != "" && isNameRune(rune(rest[0])) {
			return true
		}
	}
	return false
}

// Parse compiles input into a Request. Text before the first @ becomes
// the context string. Returns ErrNoInvocation when no token is present
// and ErrUnknownAgent when the registry rejects a name.
func (p *Parser) Parse(input string) (*Request, error) {
	start := firstToken(input)
	if start < 0 {
		return nil, ErrNoInvocation
	}

	segments, err := scan(input[start:])
	if err != nil {
		return nil, err
	}

	if p.resolver != nil {
		for _, seg := range segments {
			for _, c := range seg.clusters {
				for _, inv := range c.agents {
					if _, ok := p.resolver.Get(inv.AgentName); !ok {
						return nil, fmt.Errorf("%w: %s", ErrUnknownAgent, inv.AgentName)
					}
				}
			}
		}
	}

	plan := buildPlan(segments)
	req := &Request{
		ID:            uuid.New(),
		OriginalInput: input,
		Plan:          plan,
		Context:       strings.TrimSpace(input[:start]),
	}
	logging.OrchestratorDebug("parsed plan %T with %d invocations", plan, len(plan.Invocations()))
	return req, nil
}

// firstToken returns the offset of the first @name token, or -1.
func firstToken(input string) int {
	for i := 0; i < len(input)-1; i++ {
		if input[i] == '@' && isNameRune(rune(input[i+1])) {
			return i
		}
	}
	return -1
}

func isNameRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_'
}

// boundary operators between clusters.
type boundaryOp int

const (
	opAdjacent boundaryOp = iota // @a @b
	opSequence                   // @a -> @b
)

// cluster is a run of agents joined by +, with an optional predicate.
type cluster struct {
	agents    []Invocation
	predicate Predicate
	predSrc   string
}

// segment is the run of clusters between two barriers. boundaries[i] is
// the operator between clusters[i] and clusters[i+1].
type segment struct {
	clusters   []cluster
	boundaries []boundaryOp
}

// scan tokenizes the input from the first @ onward into barrier-separated
// segments of operator-joined clusters.
func scan(src string) ([]segment, error) {
	var (
		segs     []segment
		cur      segment
		curClust cluster
		position int
		// op pending between the finished cluster and the next one
		pendingSeq bool
		// + seen: the next agent joins the current cluster
		pendingPar bool
		havePrev   bool
	)

	closeCluster := func() {
		if len(curClust.agents) == 0 {
			return
		}
		if havePrev {
			op := opAdjacent
			if pendingSeq {
				op = opSequence
			}
			cur.boundaries = append(cur.boundaries, op)
		}
		cur.clusters = append(cur.clusters, curClust)
		curClust = cluster{}
		havePrev = true
		pendingSeq = false
		pendingPar = false
	}
	closeSegment := func() {
		closeCluster()
		if len(cur.clusters) > 0 {
			segs = append(segs, cur)
		}
		cur = segment{}
		havePrev = false
		pendingSeq = false
		pendingPar = false
	}

	i := 0
	for i < len(src) {
		switch {
		case src[i] == '\n':
			// Two consecutive newlines, or a --- line, is a barrier.
			j := i + 1
			for j < len(src) && (src[j] == ' ' || src[j] == '\t') {
				j++
			}
			if j < len(src) && src[j] == '\n' {
				closeSegment()
				for j < len(src) && (src[j] == '\n' || src[j] == ' ' || src[j] == '\t') {
					j++
				}
				i = j
				continue
			}
			i++

		case src[i] == ' ' || src[i] == '\t':
			i++

		case strings.HasPrefix(src[i:], "---"):
			closeSegment()
			i += 3

		case strings.HasPrefix(src[i:], "->"):
			closeCluster()
			pendingSeq = true
			i += 2

		case strings.HasPrefix(src[i:], "→"):
			closeCluster()
			pendingSeq = true
			i += len("→")

		case src[i] == '+':
			pendingPar = true
			i++

		case strings.HasPrefix(src[i:], "?{"):
			end := strings.IndexByte(src[i:], '}')
			if end < 0 {
				return nil, fmt.Errorf("unterminated predicate at offset %d", i)
			}
			expr := src[i+2 : i+end]
			pred, err := CompilePredicate(expr)
			if err != nil {
				return nil, err
			}
			curClust.predicate = pred
			curClust.predSrc = strings.TrimSpace(expr)
			i += end + 1

		case src[i] == '@':
			if len(curClust.agents) > 0 && !pendingPar {
				closeCluster()
			}
			pendingPar = false
			inv, next, err := scanInvocation(src, i, position)
			if err != nil {
				return nil, err
			}
			position++
			curClust.agents = append(curClust.agents, inv)
			i = next

		default:
			// Trailing prose between tokens carries no structure.
			i++
		}
	}
	closeSegment()

	return segs, nil
}

// scanInvocation reads @name plus any key=value parameters that follow it
// on the same line.
func scanInvocation(src string, at, position int) (Invocation, int, error) {
	i := at + 1
	nameStart := i
	for i < len(src) && isNameRune(rune(src[i])) {
		i++
	}
	name := src[nameStart:i]
	if name == "" {
		return Invocation{}, 0, fmt.Errorf("bare @ at offset %d", at)
	}

	inv := Invocation{
		AgentName:  name,
		Parameters: map[string]string{},
		Position:   position,
	}

	rawStart := -1
	for i < len(src) {
		j := i
		for j < len(src) && (src[j] == ' ' || src[j] == '\t') {
			j++
		}
		key, val, next, ok := scanParam(src, j)
		if !ok {
			break
		}
		if rawStart < 0 {
			rawStart = j
		}
		inv.Parameters[key] = val
		i = next
	}
	if rawStart >= 0 {
		inv.RawParameters = strings.TrimSpace(src[rawStart:i])
	}

	// mode and intelligence are reserved keys that become overrides.
	if mode, ok := inv.Parameters["mode"]; ok {
		inv.ModeOverride = mode
		delete(inv.Parameters, "mode")
	}
	if level, ok := inv.Parameters["intelligence"]; ok {
		switch types.Intelligence(level) {
		case types.IntelligenceLight, types.IntelligenceMedium, types.IntelligenceHard:
			inv.IntelligenceOverride = types.Intelligence(level)
		default:
			return Invocation{}, 0, fmt.Errorf("agent %s: invalid intelligence %q", name, level)
		}
		delete(inv.Parameters, "intelligence")
	}

	return inv, i, nil
}

// scanParam matches key=value or key="quoted value" at offset i.
func scanParam(src string, i int) (key, val string, next int, ok bool) {
	start := i
	for i < len(src) && isNameRune(rune(src[i])) {
		i++
	}
	if i == start || i >= len(src) || src[i] != '=' {
		return "", "", 0, false
	}
	key = src[start:i]
	i++

	if i < len(src) && src[i] == '"' {
		end := strings.IndexByte(src[i+1:], '"')
		if end < 0 {
			return "", "", 0, false
		}
		val = src[i+1 : i+1+end]
		return key, val, i + end + 2, true
	}

	valStart := i
	for i < len(src) && !unicode.IsSpace(rune(src[i])) && src[i] != '+' {
		i++
	}
	return key, src[valStart:i], i, true
}

// buildPlan collapses the scanned segments into the simplest plan shape
// that preserves their structure.
func buildPlan(segs []segment) ExecutionPlan {
	if len(segs) == 1 {
		return buildSegment(segs[0])
	}

	var steps []Step
	for i, seg := range segs {
		if i > 0 {
			steps = append(steps, Barrier{})
		}
		steps = append(steps, segmentSteps(seg)...)
	}
	return Mixed{Steps: steps}
}

func buildSegment(seg segment) ExecutionPlan {
	if len(seg.clusters) == 1 {
		c := seg.clusters[0]
		switch {
		case c.predicate != nil:
			return Conditional{Agents: c.agents, Predicate: c.predicate, Source: c.predSrc}
		case len(c.agents) == 1:
			return Single{Invocation: c.agents[0]}
		default:
			return Parallel{Agents: c.agents}
		}
	}

	// A run of one-agent clusters joined by a uniform operator is a
	// plain chain; anything else needs Mixed steps.
	uniform := true
	for _, op := range seg.boundaries[1:] {
		if op != seg.boundaries[0] {
			uniform = false
			break
		}
	}
	simple := uniform
	for _, c := range seg.clusters {
		if len(c.agents) != 1 || c.predicate != nil {
			simple = false
			break
		}
	}
	if simple {
		chain := make([]Invocation, 0, len(seg.clusters))
		for _, c := range seg.clusters {
			chain = append(chain, c.agents[0])
		}
		return Sequential{Chain: chain, PassOutput: seg.boundaries[0] == opSequence}
	}

	return Mixed{Steps: segmentSteps(seg)}
}

func segmentSteps(seg segment) []Step {
	steps := make([]Step, 0, len(seg.clusters))
	for _, c := range seg.clusters {
		switch {
		case c.predicate != nil:
			steps = append(steps, Conditional{Agents: c.agents, Predicate: c.predicate, Source: c.predSrc})
		case len(c.agents) == 1:
			steps = append(steps, Single{Invocation: c.agents[0]})
		default:
			steps = append(steps, Parallel{Agents: c.agents})
		}
	}
	return steps
}
