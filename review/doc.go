/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

/*
Package review loads the structured result of an automated pull request
review and turns it into display-ready data.

A review file is a JSON object:

	{
	  "approved": true,
	  "overallRisk": "LOW",
	  "summary": "Bumps nginx.",
	  "findings": [
	    {"type": "version", "subject": {"kind": "chart", "name": "nginx", "from": "1.0", "to": "1.1"}}
	  ]
	}

Older reviewers wrote "changes" instead of "findings" and used a flat
"component"/"resource"/"changeType" shape per entry. [Load] accepts both and
[Normalize] maps either shape onto [Finding].

# Usage

	report, err := review.Load(ctx, "output/review.json", review.LoadOptions{ValidateStructure: true})
	if err != nil {
		return err
	}
	view := review.BuildView(ctx, report, validationErrors, "", nil)

Anchors are unique per [AnchorCounter]. [BuildView] uses a fresh counter for
every rendered document.
*/
package review
