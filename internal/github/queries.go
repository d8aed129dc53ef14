package github

// fieldValuesFragment selects every project field value kind the sync maps.
// Value kinds it does not select (labels, assignees, ...) come back as empty objects.
const fieldValuesFragment = `
      nodes {
        ... on ProjectV2ItemFieldTextValue {
          text
          field { ... on ProjectV2FieldCommon { name } }
        }
        ... on ProjectV2ItemFieldDateValue {
          date
          field { ... on ProjectV2FieldCommon { name } }
        }
        ... on ProjectV2ItemFieldSingleSelectValue {
          name
          field { ... on ProjectV2FieldCommon { name } }
        }
        ... on ProjectV2ItemFieldNumberValue {
          number
          field { ... on ProjectV2FieldCommon { name } }
        }
        ... on ProjectV2ItemFieldIterationValue {
          duration
          startDate
          title
          field { ... on ProjectV2FieldCommon { name } }
        }
      }`

const issueQuery = `query($owner: String!, $name: String!, $number: Int!) {
  repository(owner: $owner, name: $name) {
    issue(number: $number) {
      title
      url
      body
      projectItems(first: 1) {
        nodes {
          fieldValues(first: 20) {` + fieldValuesFragment + `
          }
        }
      }
    }
  }
}`

// itemsQuery lists project items. Pull requests and draft issues are part of
// the response but carry no Issue content.
const itemsQuery = `query($projectId: ID!, $first: Int!, $after: String) {
  node(id: $projectId) {
    ... on ProjectV2 {
      items(first: $first, after: $after) {
        nodes {
          id
          fieldValues(first: 20) {` + fieldValuesFragment + `
          }
          content {
            ... on Issue {
              title
              url
              body
            }
          }
        }
        pageInfo {
          hasNextPage
          endCursor
        }
      }
    }
  }
}`

const projectsQuery = `query($owner: String!, $name: String!) {
  repository(owner: $owner, name: $name) {
    projectsV2(first: 100) {
      nodes {
        id
        title
      }
    }
  }
}`

// RepoProbeQuery only needs read access to the repository.
const RepoProbeQuery = `query($owner: String!, $name: String!) {
  repository(owner: $owner, name: $name) {
    id
    name
  }
}`

// ProjectProbeQuery only needs read access to the project node.
const ProjectProbeQuery = `query($id: ID!) {
  node(id: $id) {
    ... on ProjectV2 {
      id
      title
    }
  }
}`
