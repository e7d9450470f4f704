// Copyright 2026 firmfuzz project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package report

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/firmfuzz/firmfuzz/pkg/stack"
	dmp "github.com/sergi/go-diff/diffmatchpatch"
)

// Render produces the human-readable report document.
func (rep *Report) Render() []byte {
	buf := new(bytes.Buffer)
	subject := rep.subjectName()
	fmt.Fprintf(buf, "# Report %v\n\n", rep.ID)
	if rep.Instance != "" {
		fmt.Fprintf(buf, "Harness instance: %v\n\n", rep.Instance)
	}
	fmt.Fprintf(buf, "The ir graph was generated by running\n\n\t%v\n\n", rep.GenInvocation)
	if rep.Version != "" {
		fmt.Fprintf(buf, "%v version:\n\n%v\n", subject, indent(strings.TrimSpace(rep.Version)))
	}
	buf.WriteString("## Error report\n\n")
	listRuns(buf, fmt.Sprintf("The following %v runs timed out:", subject), rep.Timeouts)
	listRuns(buf, fmt.Sprintf("The following %v runs aborted:", subject), rep.Aborts)
	listRuns(buf, fmt.Sprintf("The following %v runs crashed:", subject), rep.Crashes)
	listRuns(buf, fmt.Sprintf("The following %v runs succeeded:", subject), rep.Successes)
	detailRuns(buf, fmt.Sprintf("### %v timeouts", subject), subject, rep.Timeouts)
	detailRuns(buf, fmt.Sprintf("### %v aborts", subject), subject, rep.Aborts)
	detailRuns(buf, fmt.Sprintf("### %v crashes", subject), subject, rep.Crashes)
	return buf.Bytes()
}

func (rep *Report) subjectName() string {
	if rep.Subject != "" {
		return rep.Subject
	}
	for _, rec := range rep.Records {
		if len(rec.Args) != 0 {
			return filepath.Base(rec.Args[0])
		}
	}
	return "subject"
}

func listRuns(buf *bytes.Buffer, title string, recs []*RunRecord) {
	if len(recs) == 0 {
		return
	}
	fmt.Fprintf(buf, "%v\n\n", title)
	for _, rec := range recs {
		fmt.Fprintf(buf, "\t%v\n", rec.Invocation())
	}
	buf.WriteString("\n")
}

func detailRuns(buf *bytes.Buffer, title, subject string, recs []*RunRecord) {
	if len(recs) == 0 {
		return
	}
	fmt.Fprintf(buf, "%v\n\n", title)
	for _, rec := range recs {
		rec.render(buf, subject)
	}
}

func (rec *RunRecord) render(buf *bytes.Buffer, subject string) {
	switch rec.Outcome {
	case Abort:
		fmt.Fprintf(buf, "#### %v aborted with exit code %v\n\n", subject, rec.ExitCode)
		if rec.Stderr != "" {
			fmt.Fprintf(buf, "%v produced the following data on stderr\n\n%v\n", subject, indent(rec.Stderr))
		}
		if rec.Inconclusive {
			buf.WriteString("The abort did not reproduce under the debugger.\n\n")
		}
	case Timeout:
		fmt.Fprintf(buf, "#### %v timed out\n\n", subject)
		traces := rec.Traces()
		if common := stack.CommonSuffix(traces); len(common) != 0 {
			fmt.Fprintf(buf, "Stack trace identical up to frame:\n\n\t%v\n\n", common[len(common)-1])
		}
		if diff := StackMovement(traces); diff != "" {
			fmt.Fprintf(buf, "Stack movement between the first and the last sample:\n\n%v\n", indent(diff))
		}
	case Crash:
		fmt.Fprintf(buf, "#### %v crashed\n\n", subject)
	case Success:
		fmt.Fprintf(buf, "#### %v ran successfully\n\n", subject)
	}
	if rec.DiagnosisErr != nil {
		fmt.Fprintf(buf, "Debugger diagnosis failed: %v\n\n", rec.DiagnosisErr)
	}
	fmt.Fprintf(buf, "%v was run with the following options:\n\n\t%v\n\n", subject, rec.Invocation())
	for _, p := range rec.Points {
		p.render(buf)
	}
}

func (p *DebugPoint) render(buf *bytes.Buffer) {
	if len(p.Artifacts) != 0 {
		buf.WriteString("IR Graph was snapshotted at debugging stop:\n")
		for _, file := range p.Artifacts {
			fmt.Fprintf(buf, "* %v\n", file)
		}
	}
	fmt.Fprintf(buf, "Stacktrace after running for %.2f seconds\n\n", p.Elapsed.Seconds())
	for _, line := range p.Lines() {
		fmt.Fprintf(buf, "\t%v\n", line)
	}
	buf.WriteString("\n\n")
}

// StackMovement returns a line diff between the first and the last stack trace
// with frame numbers stripped, or "" if they are the same.
func StackMovement(traces [][]string) string {
	if len(traces) < 2 {
		return ""
	}
	from := normalized(traces[0])
	to := normalized(traces[len(traces)-1])
	if from == to {
		return ""
	}
	differ := dmp.New()
	a, b, lines := differ.DiffLinesToChars(from, to)
	diffs := differ.DiffCharsToLines(differ.DiffMain(a, b, false), lines)
	res := new(strings.Builder)
	for _, d := range diffs {
		prefix := "  "
		switch d.Type {
		case dmp.DiffDelete:
			prefix = "- "
		case dmp.DiffInsert:
			prefix = "+ "
		}
		for _, line := range strings.SplitAfter(d.Text, "\n") {
			if line == "" {
				continue
			}
			res.WriteString(prefix + line)
		}
	}
	return res.String()
}

func normalized(trace []string) string {
	res := new(strings.Builder)
	for _, line := range trace {
		res.WriteString(stack.Normalize(line) + "\n")
	}
	return res.String()
}

func indent(text string) string {
	res := new(strings.Builder)
	for _, line := range strings.Split(strings.TrimRight(text, "\n"), "\n") {
		res.WriteString("\t" + line + "\n")
	}
	res.WriteString("\n")
	return res.String()
}
