package tools

// Tool categories
const (
	CategoryConnection = "connection"
	CategoryCatalog    = "catalog"
	CategoryMembers    = "members"
	CategoryMDX        = "mdx"
	CategoryPlanning   = "planning"
)

// AllTools describes every tool for the Essbase MCP server.
// Tool descriptions follow a structured format for optimal LLM tool selection:
// - USE WHEN: Natural language triggers
// - NOT FOR: Disambiguation from similar tools
// - PARAMETERS: Key arguments with defaults
// - RETURNS: What the tool returns
var AllTools = []ToolSpec{
	// ==========================================================================
	// CONNECTION
	// ==========================================================================
	{
		Name:     "essbase_connect",
		Method:   "Connect",
		Title:    "Connect to Essbase",
		Category: CategoryConnection,
		Description: `Verify an Essbase connection profile and normalize its URL.

USE WHEN: Starting a session, or the user gives a server URL and credentials ("connect to essbase at https://...").

NOT FOR: Listing anything (use essbase_list_applications after connecting).

PARAMETERS:
- profile: {url, user, pwd} (required). Any URL on the server works; it is reduced to scheme://host[:port]/essbase/rest/v1.

RETURNS: The normalized profile to pass to every other essbase_* tool. Credentials are sent with each call; nothing is stored server-side.`,
		ReadOnly:   true,
		Idempotent: true,
		OpenWorld:  true,
	},

	// ==========================================================================
	// CATALOG
	// ==========================================================================
	{
		Name:     "essbase_list_applications",
		Method:   "ListApplications",
		Title:    "List Essbase Applications",
		Category: CategoryCatalog,
		Description: `List the applications the user can access.

USE WHEN: User asks "what applications are there", "which cubes exist".

PARAMETERS:
- profile: {url, user, pwd} (required)

RETURNS: Application names and count.`,
		ReadOnly:   true,
		Idempotent: true,
		OpenWorld:  true,
	},
	{
		Name:     "essbase_list_databases",
		Method:   "ListDatabases",
		Title:    "List Essbase Databases",
		Category: CategoryCatalog,
		Description: `List the databases (cubes) of one application.

USE WHEN: User asks "what databases does Sample have", or you need a db name for member search.

PARAMETERS:
- app_profile: {url, user, pwd, app} (required)

RETURNS: Database names and count. Fails with not found for an unknown application.`,
		ReadOnly:   true,
		Idempotent: true,
		OpenWorld:  true,
	},
	{
		Name:     "essbase_list_dimensions",
		Method:   "ListDimensions",
		Title:    "List Essbase Dimensions",
		Category: CategoryCatalog,
		Description: `List the dimensions of one database.

USE WHEN: User asks "what dimensions does Sample.Basic have", or you need to know the axes before writing MDX.

PARAMETERS:
- db_profile: {url, user, pwd, app, db} (required)

RETURNS: Dimension names in outline order and count.`,
		ReadOnly:   true,
		Idempotent: true,
		OpenWorld:  true,
	},

	// ==========================================================================
	// MEMBERS
	// ==========================================================================
	{
		Name:     "essbase_search_members",
		Method:   "SearchMembers",
		Title:    "Resolve Member Names",
		Category: CategoryMembers,
		Description: `Resolve free-text names to outline members of a database.

USE WHEN: The user mentions business terms ("sales in New York for Q1") and you need the exact unique member names for MDX.

NOT FOR: Listing dimensions (use essbase_list_dimensions).

PARAMETERS:
- db_profile: {url, user, pwd, app, db} (required)
- entity_names: names or aliases to resolve, 1 to 100 (required)

RETURNS: One {name, member} pair per requested name, in request order. member is {dimension, name, unique_name} or null when nothing matched or the lookup failed. Exact unique-name matches win over exact name matches, which win over the first hit.`,
		ReadOnly:   true,
		Idempotent: true,
		OpenWorld:  true,
	},

	// ==========================================================================
	// MDX
	// ==========================================================================
	{
		Name:     "essbase_member_range_mdx",
		Method:   "MemberRangeMDX",
		Title:    "Build MemberRange Expression",
		Category: CategoryMDX,
		Description: `Build an MDX MemberRange(start, end) expression.

USE WHEN: The user asks for a span of members ("Jan through Jun").

PARAMETERS:
- range: {start, end}. Each endpoint is {name} (raw text) or {member} (a resolved member; its unique_name is used).

RETURNS: The expression text. No escaping or validation against the outline is done.`,
		ReadOnly:   true,
		Idempotent: true,
	},
	{
		Name:     "essbase_set_mdx",
		Method:   "SetMDX",
		Title:    "Build Set Expression",
		Category: CategoryMDX,
		Description: `Build an MDX set expression from exactly one of a member list, a range, or a function.

USE WHEN: Composing the axes of an MDX query.

PARAMETERS:
- set: exactly one of {members: [..]} -> {A, B}, {range: {start, end}} -> MemberRange(A, B), {function: {function_name}} -> Name()

RETURNS: The expression text. Members are inserted verbatim.`,
		ReadOnly:   true,
		Idempotent: true,
	},

	// ==========================================================================
	// EPM PLANNING
	// ==========================================================================
	{
		Name:     "planning_connect",
		Method:   "PlanningConnect",
		Title:    "Connect to EPM Planning",
		Category: CategoryPlanning,
		Description: `Verify an EPM Planning connection profile and normalize its URL.

USE WHEN: The user gives a Planning or EPM Cloud URL ("connect to planning at https://...").

NOT FOR: Essbase servers (use essbase_connect). Planning profiles do not work with essbase_* tools.

PARAMETERS:
- profile: {url, user, pwd} (required). Any URL on the server works; it is reduced to scheme://host[:port]/HyperionPlanning/rest/v3.

RETURNS: The normalized profile to pass to planning_list_applications. Fails when the server does not answer with JSON.`,
		ReadOnly:   true,
		Idempotent: true,
		OpenWorld:  true,
	},
	{
		Name:     "planning_list_applications",
		Method:   "PlanningListApplications",
		Title:    "List Planning Applications",
		Category: CategoryPlanning,
		Description: `List the EPM Planning applications assigned to the user.

USE WHEN: User asks "what planning applications are there", "which Planning apps can I use".

NOT FOR: Essbase applications or cubes (use essbase_list_applications).

PARAMETERS:
- profile: {url, user, pwd} (required)

RETURNS: Application names and count.`,
		ReadOnly:   true,
		Idempotent: true,
		OpenWorld:  true,
	},
}
