package parser

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"floorplan/internal/planner/geom"
)

// ============================================================
// Path Parser
// ============================================================

// ParsePath парсит SVG path (M, L, H, V, Z, абсолютные и относительные) в список точек.
// Лишние пары координат после M или L повторяют команду, Z замыкает путь первой точкой.
func ParsePath(d string) ([]geom.Point, error) {
	tokens, err := tokenize(d)
	if err != nil {
		return nil, err
	}
	if len(tokens) == 0 {
		return nil, fmt.Errorf("empty path")
	}

	var (
		points   []geom.Point
		cur      geom.Point
		start    geom.Point
		cmd      byte
		argIndex int
	)
	next := func() (float64, error) {
		if argIndex >= len(tokens) || tokens[argIndex].cmd != 0 {
			return 0, fmt.Errorf("command %c: missing argument", cmd)
		}
		v := tokens[argIndex].num
		argIndex++
		return v, nil
	}

	for argIndex < len(tokens) {
		if t := tokens[argIndex]; t.cmd != 0 {
			cmd = t.cmd
			argIndex++
		} else if cmd == 0 {
			return nil, fmt.Errorf("path must start with a command")
		}

		rel := unicode.IsLower(rune(cmd))
		switch unicode.ToUpper(rune(cmd)) {
		case 'M', 'L':
			x, err := next()
			if err != nil {
				return nil, err
			}
			y, err := next()
			if err != nil {
				return nil, err
			}
			if rel {
				x, y = cur.X+x, cur.Y+y
			}
			cur = geom.Point{X: x, Y: y}
			if unicode.ToUpper(rune(cmd)) == 'M' {
				start = cur
				// subsequent pairs are implicit line-tos
				cmd -= 'M' - 'L'
			}
			points = append(points, cur)
		case 'H':
			x, err := next()
			if err != nil {
				return nil, err
			}
			if rel {
				x += cur.X
			}
			cur.X = x
			points = append(points, cur)
		case 'V':
			y, err := next()
			if err != nil {
				return nil, err
			}
			if rel {
				y += cur.Y
			}
			cur.Y = y
			points = append(points, cur)
		case 'Z':
			points = append(points, start)
			cur = start
			cmd = 0
			if argIndex < len(tokens) && tokens[argIndex].cmd == 0 {
				return nil, fmt.Errorf("command Z takes no arguments")
			}
		default:
			return nil, fmt.Errorf("unsupported path command %c", cmd)
		}
	}
	return points, nil
}

type token struct {
	cmd byte
	num float64
}

// tokenize разбивает d на команды и числа.
// Разделитель: пробел, запятая, знак или вторая точка ("1.5.5" это 1.5, .5).
func tokenize(d string) ([]token, error) {
	var out []token
	i := 0
	for i < len(d) {
		c := d[i]
		switch {
		case c == ' ' || c == ',' || c == '\t' || c == '\n' || c == '\r':
			i++
		case strings.IndexByte("MmLlHhVvZzCcSsQqTtAa", c) >= 0:
			out = append(out, token{cmd: c})
			i++
		default:
			j := scanNumber(d, i)
			if j == i {
				return nil, fmt.Errorf("unexpected %q at %d", c, i)
			}
			v, err := strconv.ParseFloat(d[i:j], 64)
			if err != nil {
				return nil, fmt.Errorf("number at %d: %w", i, err)
			}
			out = append(out, token{num: v})
			i = j
		}
	}
	return out, nil
}

func scanNumber(d string, i int) int {
	j := i
	if j < len(d) && (d[j] == '+' || d[j] == '-') {
		j++
	}
	dot := false
	digits := false
	for j < len(d) {
		switch c := d[j]; {
		case c >= '0' && c <= '9':
			digits = true
		case c == '.' && !dot:
			dot = true
		case (c == 'e' || c == 'E') && digits:
			k := j + 1
			if k < len(d) && (d[k] == '+' || d[k] == '-') {
				k++
			}
			if k >= len(d) || d[k] < '0' || d[k] > '9' {
				return j
			}
			j = k
			for j < len(d) && d[j] >= '0' && d[j] <= '9' {
				j++
			}
			return j
		default:
			if !digits {
				return i
			}
			return j
		}
		j++
	}
	if !digits {
		return i
	}
	return j
}
