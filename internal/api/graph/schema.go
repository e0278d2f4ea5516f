package graph

// schemaString GraphQL Schema定义
const schemaString = `
enum Order {
  SCORE
  TIME
}

enum VoteOutcome {
  ACCEPTED
  ALREADY_VOTED
  WINDOW_CLOSED
  NOT_FOUND
}

type Article {
  id: ID!
  title: String!
  link: String!
  poster: String!
  createdAt: String!
  # 超过2147483647时返回2147483647
  votes: Int!
}

type Query {
  # 获取单篇文章，不存在时返回null
  article(id: ID!): Article

  # 全站文章分页，默认按评分排序
  articles(page: Int!, order: Order): [Article!]!

  # 群组内文章分页
  groupArticles(group: String!, page: Int!, order: Order): [Article!]!
}

type Mutation {
  # 发布文章，返回文章ID
  postArticle(author: String!, title: String!, link: String!): ID!

  # 投票
  vote(user: String!, articleId: ID!): VoteOutcome!

  # 将文章加入群组
  addToGroup(articleId: ID!, groups: [String!]!): Boolean!
}

schema {
  query: Query
  mutation: Mutation
}
`
