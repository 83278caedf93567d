package notification

const emailSignature = `<br><p>Regards,<br>SGPTI Team</p>`

func defaultTemplates() []Template {
	return []Template{
		{
			TypeID:  1,
			Code:    ProjectSubmitted,
			Name:    "Project submitted",
			Subject: "Your project has been submitted for review",
			Body:    "Hi {{user_name}}, your project \"{{project_title}}\" was submitted and is waiting for review.",
			HTML: `<h2>Hi {{user_name}}!</h2>
<p>Your project "<strong>{{project_title}}</strong>" was submitted successfully and is waiting for review.</p>
<p>We will let you know as soon as there is news.</p>
<p><a href="{{project_url}}">Open project</a></p>` + emailSignature,
		},
		{
			TypeID:  2,
			Code:    ReviewerAssigned,
			Name:    "Reviewer assigned",
			Subject: "A project was assigned to you for review",
			Body:    "Hi {{user_name}}, you were assigned to review \"{{project_title}}\".",
			HTML: `<h2>Hi {{user_name}}!</h2>
<p>You were assigned to review the project "<strong>{{project_title}}</strong>".</p>
<p><a href="{{project_url}}">Open project</a></p>` + emailSignature,
		},
		{
			TypeID:  3,
			Code:    StatusChanged,
			Name:    "Status changed",
			Subject: "Your project status changed to: {{new_status}}",
			Body:    "Hi {{user_name}}, the status of \"{{project_title}}\" is now {{new_status}}. {{reason}}",
			HTML: `<h2>Hi {{user_name}}!</h2>
<p>The status of your project "<strong>{{project_title}}</strong>" is now <strong>{{new_status}}</strong>.</p>
<p>{{reason}}</p>
<p><a href="{{project_url}}">Open project</a></p>` + emailSignature,
		},
		{
			TypeID:  4,
			Code:    NewComment,
			Name:    "New comment",
			Subject: "New comment on \"{{project_title}}\"",
			Body:    "Hi {{user_name}}, there is a new comment on \"{{project_title}}\": {{comment_preview}}",
			HTML: `<h2>Hi {{user_name}}!</h2>
<p>There is a new comment on "<strong>{{project_title}}</strong>":</p>
<blockquote>{{comment_preview}}</blockquote>
<p><a href="{{project_url}}">Open project</a></p>` + emailSignature,
		},
		{
			TypeID:  5,
			Code:    ProjectApproved,
			Name:    "Project approved",
			Subject: "Congratulations! Your project was approved",
			Body:    "Hi {{user_name}}, your project \"{{project_title}}\" was approved. {{reason}}",
			HTML: `<h2>Congratulations {{user_name}}!</h2>
<p>Your project "<strong>{{project_title}}</strong>" was approved.</p>
<p>{{reason}}</p>
<p><a href="{{project_url}}">Open project</a></p>` + emailSignature,
		},
		{
			TypeID:  6,
			Code:    ProjectRejected,
			Name:    "Project rejected",
			Subject: "Your project was rejected",
			Body:    "Hi {{user_name}}, your project \"{{project_title}}\" was rejected. Reason: {{reason}}",
			HTML: `<h2>Hi {{user_name}}</h2>
<p>Your project "<strong>{{project_title}}</strong>" was rejected.</p>
<p><strong>Reason:</strong> {{reason}}</p>
<p><a href="{{project_url}}">Open project</a></p>` + emailSignature,
		},
		{
			TypeID:  7,
			Code:    DocumentUploaded,
			Name:    "Document uploaded",
			Subject: "New document on \"{{project_title}}\"",
			Body:    "Hi {{user_name}}, the document \"{{document_name}}\" ({{stage_name}}) was uploaded to \"{{project_title}}\".",
			HTML: `<h2>Hi {{user_name}}!</h2>
<p>The document "<strong>{{document_name}}</strong>" for stage <strong>{{stage_name}}</strong> was uploaded to "<strong>{{project_title}}</strong>".</p>
<p><a href="{{project_url}}">Open project</a></p>` + emailSignature,
		},
	}
}
