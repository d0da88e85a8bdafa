package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// ErrNoInput is returned when the input ends before a valid answer.
var ErrNoInput = errors.New("no more input")

// Prompter asks for report parameters on a line-oriented terminal and keeps
// asking until the answer parses.
type Prompter struct {
	in       *bufio.Scanner
	out      io.Writer
	location *time.Location
}

func New(in io.Reader, out io.Writer, loc *time.Location) *Prompter {
	if loc == nil {
		loc = time.Local
	}
	return &Prompter{in: bufio.NewScanner(in), out: out, location: loc}
}

func (p *Prompter) ask(question string) (string, error) {
	fmt.Fprint(p.out, question)
	if !p.in.Scan() {
		if err := p.in.Err(); err != nil {
			return "", err
		}
		return "", ErrNoInput
	}
	return strings.TrimSpace(p.in.Text()), nil
}

func (p *Prompter) PIN() (int, error) {
	for {
		answer, err := p.ask("Enter the worker's PIN: ")
		if err != nil {
			return 0, err
		}
		pin, err := strconv.Atoi(answer)
		if err == nil && pin > 0 {
			return pin, nil
		}
		fmt.Fprintln(p.out, "Invalid input. Please enter a number for the PIN.")
	}
}

func (p *Prompter) Date(label string) (time.Time, error) {
	for {
		answer, err := p.ask(fmt.Sprintf("Enter the %s date (YYYY-MM-DD): ", label))
		if err != nil {
			return time.Time{}, err
		}
		date, err := time.ParseInLocation(dateLayout, answer, p.location)
		if err == nil {
			return date, nil
		}
		fmt.Fprintln(p.out, "Invalid date format. Please use YYYY-MM-DD.")
	}
}

// DateRange asks for start and end dates, asking again for the end date
// while it precedes the start.
func (p *Prompter) DateRange() (time.Time, time.Time, error) {
	start, err := p.Date("start")
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	for {
		end, err := p.Date("end")
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		if !end.Before(start) {
			return start, end, nil
		}
		fmt.Fprintln(p.out, "The end date must not be before the start date.")
	}
}
