package assist

const insightsPrompt = `You are a conversation analyst. Below is a chat between %s and %s%s.

Write a short report in Markdown with these sections:

## Overview
Two or three sentences on what the conversation is about.

## Tone & Mood
How each person sounds, and whether it changes over time.

## Topics
Bulleted list of the main topics in order of appearance.

## Dynamics
Who starts topics, who asks more questions, how quickly and warmly each side replies.

## Notable Moments
Up to three quoted lines that capture the relationship, with one line of commentary each.

Refer to the participants by the names used above. Do not invent messages.

Chat:
---
%s
---`

const predictPrompt = `You are continuing a chat conversation. Study how %s writes: length, punctuation, emoji, language, slang.

Chat so far:
---
%s
---

Write the single next message %s would most plausibly send.
Reply with the message text only: no name prefix, no quotes, no explanation.`

const translatePrompt = `Translate the text below from %s into %s.
Keep the meaning, tone, emoji and line breaks. Do not add notes or alternatives.
Reply with the translation only.

Text:
---
%s
---`

const lookupPrompt = `Explain the term "%s" as it is used in this sentence:
"%s"

Answer in %s with:
- the meaning in this context (one line)
- part of speech
- one short example sentence

Keep it under 60 words. Plain text, no Markdown headings.`
