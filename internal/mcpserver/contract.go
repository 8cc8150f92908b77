package mcpserver

// NoteFormatContract describes the note file format that LLM consumers
// should follow when creating or reading notes.
const NoteFormatContract = `# anota Note Format Contract

A vault is a directory. Every note is one Markdown file with a YAML header.

## Layout

- ` + "`" + `<id>.md` + "`" + ` at the vault root: notes in "All Notes".
- ` + "`" + `<folder>/<id>.md` + "`" + `: notes in a user folder (one level, no nesting).
- ` + "`" + `trash/<id>.md` + "`" + `: "Recently Deleted".
- ` + "`" + `assets/` + "`" + `: images and files referenced by notes.

## File structure

` + "```" + `markdown
---
id: 6f1c2a0e-3b7d-4c1e-9a55-0c2f7d9b1e42
title: Weekly standup
tags:
  - meeting
createdAt: 2025-01-20T09:00:00.000Z
modifiedAt: 2025-01-20T09:30:00.000Z
---
# Weekly standup

Attendees: Alice, Bob. #meeting
` + "```" + `

## Rules

1. **The header is mandatory.** The ` + "`" + `---` + "`" + ` fences must be the first thing in the
   file. Files without it are ignored.
2. **` + "`" + `title` + "`" + ` is derived** from the first non-empty line of the body, with Markdown
   syntax stripped. Tools that create notes only send the body.
3. **Tags** are ` + "`" + `#words` + "`" + ` in the body. They are stored lowercase and sorted.
4. **Timestamps** are ISO-8601 UTC with milliseconds.
5. ` + "`" + `previousFolderId` + "`" + ` appears only on trashed notes and names the folder a
   recover returns them to.

## Supported Markdown

- Headings ` + "`" + `#` + "`" + ` to ` + "`" + `######` + "`" + `, quotes ` + "`" + `>` + "`" + `, fenced code blocks.
- Bullet ` + "`" + `-` + "`" + `, ordered ` + "`" + `1.` + "`" + ` and check ` + "`" + `- [ ]` + "`" + ` / ` + "`" + `- [x]` + "`" + ` lists, nested by 4 spaces.
- ` + "`" + `**bold**` + "`" + `, ` + "`" + `*italic*` + "`" + `, ` + "`" + `~~strike~~` + "`" + `, backtick code spans, ` + "`" + `<u>underline</u>` + "`" + `.
- Links ` + "`" + `[text](https://...)` + "`" + ` and images ` + "`" + `![alt](assets/name.png)` + "`" + `.

## Assets & Images

- Upload assets via the ` + "`" + `upload_asset` + "`" + ` tool. It returns a ` + "`" + `markdownImage` + "`" + ` field ready to paste into the note body.
- Assets are stored flat in ` + "`" + `assets/` + "`" + ` as ` + "`" + `<name>_<unix millis><ext>` + "`" + `.
- Reference them with the vault-relative path: ` + "`" + `![description](assets/photo_1700000000000.png)` + "`" + `.
- Supported formats: png, jpg, jpeg, gif, webp, svg, pdf.
`
