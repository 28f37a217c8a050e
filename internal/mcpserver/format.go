package mcpserver

// FormatGuide describes the Humdrum structure that LLM consumers should
// follow when creating or importing scores.
const FormatGuide = `# Humdrum Format Guide

Every score stored in humkit is a Humdrum file: tab-separated columns
(spines) read top to bottom.

## Structure

` + "```" + `
!!!COM: Bach, Johann Sebastian
!!!OTL: Aus meines Herzens Grunde
**kern	**kern	**text
*Ivox	*Ipiano	*
*M4/4	*M4/4	*
=1	=1	=1
4c	4e	Aus
4d	[4f	mei-
=2	=2	=2
2e	4f]	-nes
.	4g	.
*-	*-	*-
` + "```" + `

## Rules

1. **Exclusive interpretations first.** The first non-comment line names
   every spine with a ` + "`" + `**type` + "`" + ` token (` + "`" + `**kern` + "`" + `, ` + "`" + `**text` + "`" + `, ` + "`" + `**mens` + "`" + `, ...).
2. **Same column count on every line** between manipulators. Fields are
   separated by exactly one tab.
3. **Null tokens** are written as ` + "`" + `.` + "`" + ` (data), ` + "`" + `*` + "`" + ` (interpretation)
   and ` + "`" + `!` + "`" + ` (local comment).
4. **Spine manipulators** on an interpretation line:
   ` + "`" + `*^` + "`" + ` split, ` + "`" + `*v` + "`" + ` merge adjacent spines (never alone),
   ` + "`" + `*x` + "`" + ` exchange two adjacent spines, ` + "`" + `*+` + "`" + ` add a spine,
   ` + "`" + `*-` + "`" + ` terminate. Every spine must end with ` + "`" + `*-` + "`" + `.
5. **Global lines** start with ` + "`" + `!!` + "`" + ` and span the whole line. Reference
   records use ` + "`" + `!!!KEY: value` + "`" + ` (COM composer, OTL title, SCT catalog).
6. **Barlines** start with ` + "`" + `=` + "`" + ` and should appear in every spine.
7. **kern notes**: duration digits then pitch letters (` + "`" + `4c` + "`" + ` quarter middle C,
   ` + "`" + `8.G#` + "`" + ` dotted eighth G sharp below). ` + "`" + `r` + "`" + ` is a rest, ` + "`" + `[ _ ]` + "`" + ` tie,
   ` + "`" + `( )` + "`" + ` slur, chord notes are separated by spaces.
8. **File paths** end with ` + "`" + `.krn` + "`" + `, ` + "`" + `.hmd` + "`" + ` or ` + "`" + `.hum` + "`" + ` and use forward slashes.
   File and directory names MUST use Latin characters.
9. **Encoding** is UTF-8 with a trailing newline.

## Multiple scores in one upload

Prefix each score with ` + "`" + `!!!!SEGMENT: name.krn` + "`" + `. The ` + "`" + `import_score` + "`" + ` tool and
the upload endpoint store every segment as its own file.

## Checking

Call ` + "`" + `check_score` + "`" + ` with the content before ` + "`" + `create_score` + "`" + `. It reports spine
structure errors and hanging slurs or ties without writing anything.
`
