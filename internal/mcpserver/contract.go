package mcpserver

// NoteFormatContract describes the document layout of freshly saved
// notes so LLM consumers can produce matching content.
const NoteFormatContract = `# Clipnote Note Format

Every note saved through clipnote starts with this Markdown layout.
Edits replace the whole document, so older notes may diverge; this is
the shape of a freshly saved note.

## Structure

` + "```" + `markdown
# Human-readable title

**Type**: 学习笔记
**Created**: 2025-05-01T10:00:00+08:00
**ID**: 20250501_100000

---

## Original Content

The raw captured text, verbatim.

---

## Organized Content

The AI-reorganized Markdown version of the same content.

---

## Metadata

- Summary: one-line summary of the note
- Type: 学习笔记
` + "```" + `

## Rules

1. The first line is an H1 heading with the note title. On edit, a new
   first-line heading overrides the stored title.
2. **ID** is assigned at save time (` + "`" + `YYYYMMDD_HHMMSS` + "`" + `, with a short
   random suffix when two notes collide in the same second) and never
   changes.
3. The file name is ` + "`" + `{id}_{type}.md` + "`" + ` and stays fixed even when the
   title or type in the index changes.
4. Note types are free-form categories; the built-in classifier uses
   待办事项, 灵感想法, 参考材料, 会议记录, 代码片段, 其他 and the
   fallback 零散知识.
5. Encoding is UTF-8.
`
