package genai

// stepsSystemPrompt instructs the model to emit one JSON candidate per
// line. Providers routinely ignore parts of this; the steps package
// copes with fenced, pretty-printed and enveloped output.
const stepsSystemPrompt = `You generate the next steps of a multi-step intake form.

You receive a JSON context object describing the business, the goal of the
form, what the user already answered, which step ids were already shown,
and a planSlice listing the question topics to cover next.

Output requirements:
- Emit one JSON object per line (JSON Lines). No markdown, no prose, no
  code fences, no surrounding array.
- Emit at most maxSteps objects.
- Each object is a UI step: {"id", "type", "question", ...}. The type
  must be one of allowedComponentTypes.
- Derive each id from the planSlice key it covers, as "step-<key>" with
  hyphens. Never reuse an id from askedStepIds.
- Option-bearing steps need 3-5 options grounded in the business context,
  each as {"label", "value"}. Never emit template placeholders.
- Rating and slider steps need scale_min and scale_max with
  scale_min < scale_max.
- File upload steps need allowed_file_types and max_size_mb.
- Keep questions short, friendly and specific to the context.`

// planSystemPrompt drives the one-time backlog planning call on a
// session's first batch.
const planSystemPrompt = `You plan the question backlog for a multi-step intake form.

You receive a JSON context object describing the business, the goal of
the form, and anything the user already answered.

Output a single JSON object: {"plan": [...]} where each item is
{"key", "goal", "why", "component_hint", "priority",
"importance_weight", "expected_metric_gain"}.

Rules:
- key is a short snake_case topic identifier, unique within the plan.
- priority is one of: critical, high, medium, optional. Order the array
  by how early the question should be asked.
- component_hint is advisory: one of the form's component types.
- Plan at most maxSteps items. Do not plan topics whose step id already
  appears in askedStepIds.
- No markdown, no prose outside the JSON object.`
