package mcpserver

// DocumentFormatContract describes the canonical knowledge document format
// that LLM consumers should follow when creating or updating documents.
const DocumentFormatContract = `# Mimir Document Format Contract

Every knowledge document stored in Mimir MUST follow this structure.

## Structure

` + "```" + `markdown
---
title: Human-readable title         # REQUIRED – shown in listings and search
keywords:                           # REQUIRED – YAML list, at least one entry
  - keyword-one
  - keyword-two
created: 2025-01-15T10:00:00Z       # Set by the server, do not edit
updated: 2025-01-15T10:00:00Z       # Refreshed by the server on every change
---

Introduction text: everything before the first chapter heading.

## First Chapter

Chapter content. Deeper headings (###, ####) belong to the chapter body.

## Second Chapter

More content.
` + "```" + `

## Rules

1. **YAML front matter is mandatory.** The ` + "`---`" + ` fences must be the first
   thing in the file.
2. **Chapters start with ` + "`## `" + `.** Only level-two headings delimit chapters;
   ` + "`###`" + ` and deeper are ordinary chapter content.
3. **Chapter titles are unique** within a document, matched case-sensitively.
4. **Do not write the heading yourself** when calling add_chapter or
   update_chapter: pass the bare title and the content without the heading
   line, the server assembles the document.
5. **File names** are slugified server-side and end with ` + "`.md`" + `.
6. **Encoding** is UTF-8 with a trailing newline.

## Main document

The per-project ` + "`main.md`" + ` follows the same rules but its divisions are
called sections and are addressed by the full heading line (` + "`## Title`" + `),
not the bare title.
`
