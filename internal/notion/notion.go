package notion

// NotionClient exposes the parts of the Notion API the book store needs
type NotionClient interface {
	Page() PageService
	Search() SearchService
	Block() BlockService
	Database() DatabaseService
}
